package translator

import (
	"testing"

	"antigravity2api-go/internal/constants"
	"github.com/tidwall/gjson"
)

func TestOpenAIToUpstream_BasicConversation(t *testing.T) {
	c := newSigConverter()
	up, err := c.OpenAIToUpstream([]byte(`{
		"model": "gemini-2.5-pro",
		"messages": [
			{"role": "system", "content": "be brief"},
			{"role": "user", "content": "hello"},
			{"role": "assistant", "content": "hi"},
			{"role": "user", "content": "again"}
		],
		"temperature": 0.7
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if up.Model != "gemini-2.5-pro" || up.HasTools {
		t.Fatalf("upstream meta: %+v", up)
	}

	body := gjson.ParseBytes(up.Request)
	if body.Get("systemInstruction.parts.0.text").String() != "be brief" {
		t.Errorf("systemInstruction: %s", up.Request)
	}
	contents := body.Get("contents").Array()
	if len(contents) != 3 {
		t.Fatalf("want 3 contents, got %d", len(contents))
	}
	if contents[1].Get("role").String() != "model" {
		t.Errorf("assistant must map to model role: %s", contents[1].Raw)
	}
	if body.Get("generationConfig.temperature").Float() != 0.7 {
		t.Errorf("generationConfig: %s", body.Get("generationConfig").Raw)
	}
}

func TestOpenAIToUpstream_ToolsAndToolResults(t *testing.T) {
	c := newSigConverter()
	up, err := c.OpenAIToUpstream([]byte(`{
		"model": "gemini-2.5-pro",
		"messages": [
			{"role": "user", "content": "weather in BJ"},
			{"role": "assistant", "tool_calls": [
				{"id": "call_1", "type": "function",
				 "function": {"name": "get weather", "arguments": "{\"city\":\"BJ\"}"}}
			]},
			{"role": "tool", "tool_call_id": "call_1", "name": "get weather", "content": "{\"temp\":30}"}
		],
		"tools": [
			{"type": "function", "function": {"name": "get weather",
			 "parameters": {"type": "object", "properties": {"city": {"type": "string"}}}}}
		],
		"tool_choice": "auto"
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if !up.HasTools {
		t.Fatal("HasTools should be set")
	}

	body := gjson.ParseBytes(up.Request)
	decl := body.Get("tools.0.functionDeclarations.0")
	if decl.Get("name").String() != "get_weather" {
		t.Errorf("tool name must be sanitized: %s", decl.Raw)
	}
	if decl.Get("parameters.type").String() != "OBJECT" {
		t.Errorf("schema cleaning: %s", decl.Raw)
	}
	if body.Get("toolConfig.functionCallingConfig.mode").String() != "AUTO" {
		t.Errorf("tool_choice: %s", up.Request)
	}

	contents := body.Get("contents").Array()
	call := contents[1].Get("parts.0")
	if call.Get("functionCall.name").String() != "get_weather" {
		t.Errorf("history call must use the safe name: %s", call.Raw)
	}
	if call.Get("thoughtSignature").String() != constants.SkipThoughtSignature {
		t.Errorf("history call must carry a signature: %s", call.Raw)
	}
	// 工具结果折叠进随后的 user 轮
	resp := contents[2].Get("parts.0.functionResponse")
	if resp.Get("name").String() != "get_weather" || resp.Get("response.temp").Int() != 30 {
		t.Errorf("functionResponse: %s", contents[2].Raw)
	}
	if contents[2].Get("role").String() != "user" {
		t.Errorf("tool results belong to a user turn: %s", contents[2].Raw)
	}
}

func TestOpenAIToUpstream_SearchSuffixAddsGoogleSearch(t *testing.T) {
	c := newSigConverter()
	up, err := c.OpenAIToUpstream([]byte(`{
		"model": "gemini-2.5-pro-search",
		"messages": [{"role": "user", "content": "hi"}]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if up.Model != "gemini-2.5-pro" || !up.Features.Search {
		t.Fatalf("feature parse: %+v", up)
	}
	if !gjson.GetBytes(up.Request, "tools.0.googleSearch").Exists() {
		t.Errorf("googleSearch tool missing: %s", up.Request)
	}
	// 纯搜索工具不算函数工具
	if up.HasTools {
		t.Error("search-only request should not set HasTools")
	}
}

func TestOpenAIToUpstream_ImageDataURL(t *testing.T) {
	c := newSigConverter()
	up, err := c.OpenAIToUpstream([]byte(`{
		"model": "gemini-2.5-flash",
		"messages": [{"role": "user", "content": [
			{"type": "text", "text": "what is this"},
			{"type": "image_url", "image_url": {"url": "data:image/png;base64,AAAA"}}
		]}]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	inline := gjson.GetBytes(up.Request, "contents.0.parts.1.inlineData")
	if inline.Get("mimeType").String() != "image/png" || inline.Get("data").String() != "AAAA" {
		t.Errorf("inlineData: %s", up.Request)
	}
}

func TestOpenAIToUpstream_MalformedToolArguments(t *testing.T) {
	c := newSigConverter()
	up, err := c.OpenAIToUpstream([]byte(`{
		"model": "gemini-2.5-pro",
		"messages": [
			{"role": "assistant", "tool_calls": [
				{"id": "c1", "type": "function", "function": {"name": "search", "arguments": "not json"}}
			]}
		]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	args := gjson.GetBytes(up.Request, "contents.0.parts.0.functionCall.args")
	if args.Get("query").String() != "not json" {
		t.Errorf("malformed arguments should wrap as query: %s", up.Request)
	}
}

func TestOpenAIResponse_Shape(t *testing.T) {
	c := newSigConverter()
	body := gjson.ParseBytes(c.OpenAIResponse("gemini-2.5-pro", Parsed{
		Content:      "answer",
		Reasoning:    "thinking",
		FinishReason: "STOP",
		Usage:        &Usage{Prompt: 1, Completion: 2, Total: 3},
	}))

	if body.Get("object").String() != "chat.completion" {
		t.Errorf("object: %s", body.Raw)
	}
	msg := body.Get("choices.0.message")
	if msg.Get("content").String() != "answer" || msg.Get("reasoning_content").String() != "thinking" {
		t.Errorf("message: %s", msg.Raw)
	}
	if body.Get("choices.0.finish_reason").String() != "stop" {
		t.Errorf("finish_reason: %s", body.Raw)
	}
	if body.Get("usage.total_tokens").Int() != 3 {
		t.Errorf("usage: %s", body.Get("usage").Raw)
	}
}

func TestOpenAIResponse_NullUsage(t *testing.T) {
	c := newSigConverter()
	body := gjson.ParseBytes(c.OpenAIResponse("m", Parsed{Content: "x", FinishReason: "STOP"}))
	if body.Get("usage").Type != gjson.Null {
		t.Errorf("usage should be explicit null: %s", body.Get("usage").Raw)
	}
}
