package models

import (
	"strings"
	"testing"
)

func TestAntigravity_Expansion(t *testing.T) {
	ids := Antigravity()
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	for _, want := range []string{
		"gemini-3-pro-preview",
		"gemini-3-pro-preview-search",
		"gemini-3-pro-preview-maxthinking",
		"gemini-2.5-flash-nothinking",
		"gemini-2.5-flash-image",
		"gemini-2.5-flash-image-search",
	} {
		if !set[want] {
			t.Errorf("missing %s", want)
		}
	}
	// 图像模型没有思考档位
	if set["gemini-2.5-flash-image-maxthinking"] || set["gemini-2.5-flash-image-nothinking"] {
		t.Error("image model must not expose thinking aliases")
	}
	for _, id := range ids {
		if strings.HasPrefix(id, "假流式/") || strings.HasPrefix(id, "流式抗截断/") {
			t.Errorf("antigravity list must not carry CLI prefixes: %s", id)
		}
	}
}

func TestCLI_PrefixAliases(t *testing.T) {
	ids := CLI()
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for _, want := range []string{
		"gemini-2.5-pro",
		"假流式/gemini-2.5-pro",
		"流式抗截断/gemini-2.5-pro-search",
		"假流式/gemini-2.5-flash-nothinking",
	} {
		if !set[want] {
			t.Errorf("missing %s", want)
		}
	}
	if set["gemini-3-pro-preview"] {
		t.Error("CLI pool must not list antigravity-only models")
	}
}

func TestOpenAIList_Shape(t *testing.T) {
	out := OpenAIList([]string{"a", "b"})
	if out["object"] != "list" {
		t.Errorf("object: %v", out["object"])
	}
	data := out["data"].([]map[string]interface{})
	if len(data) != 2 || data[0]["id"] != "a" || data[0]["owned_by"] != "google" {
		t.Errorf("data: %+v", data)
	}
}

func TestGeminiList_Shape(t *testing.T) {
	out := GeminiList([]string{"gemini-2.5-pro"})
	data := out["models"].([]map[string]interface{})
	if data[0]["name"] != "models/gemini-2.5-pro" {
		t.Errorf("name: %+v", data[0])
	}
	methods := data[0]["supportedGenerationMethods"].([]string)
	if len(methods) != 2 {
		t.Errorf("methods: %v", methods)
	}
}
