package translator

import (
	"strings"

	"antigravity2api-go/internal/constants"
	"github.com/tidwall/gjson"
)

// buildGenerationConfig normalizes sampling parameters from any dialect into
// the upstream generationConfig. Field paths differ per dialect, the clamps
// are shared.
func buildGenerationConfig(rawJSON []byte, dialect Dialect, model string, f Features) map[string]interface{} {
	genConfig := make(map[string]interface{})
	genConfig["candidateCount"] = 1

	type fieldMap struct {
		temperature string
		topP        string
		topK        string
		maxTokens   string
		stop        string
	}
	var fm fieldMap
	switch dialect {
	case DialectOpenAI:
		fm = fieldMap{"temperature", "top_p", "top_k", "max_tokens", "stop"}
	case DialectClaude:
		fm = fieldMap{"temperature", "top_p", "top_k", "max_tokens", "stop_sequences"}
	case DialectGemini:
		fm = fieldMap{
			"generationConfig.temperature", "generationConfig.topP",
			"generationConfig.topK", "generationConfig.maxOutputTokens",
			"generationConfig.stopSequences",
		}
	}

	if temp := gjson.GetBytes(rawJSON, fm.temperature); temp.Exists() {
		genConfig["temperature"] = clampFloat(temp.Float(), 0, 2)
	}
	if topP := gjson.GetBytes(rawJSON, fm.topP); topP.Exists() {
		genConfig["topP"] = clampFloat(topP.Float(), 0, 1)
	}

	topKValue := constants.DefaultTopK
	if topK := gjson.GetBytes(rawJSON, fm.topK); topK.Exists() {
		value := int(topK.Int())
		if value <= 0 {
			value = constants.DefaultTopK
		}
		if value > constants.MaxTopK {
			value = constants.MaxTopK
		}
		topKValue = value
	}
	genConfig["topK"] = topKValue

	maxTokensValue := -1
	if mt := gjson.GetBytes(rawJSON, fm.maxTokens); mt.Exists() {
		maxTokensValue = int(mt.Int())
	}
	if dialect == DialectOpenAI {
		if mct := gjson.GetBytes(rawJSON, "max_completion_tokens"); mct.Exists() {
			maxTokensValue = int(mct.Int())
		}
	}
	if maxTokensValue > 0 {
		if maxTokensValue > constants.MaxOutputTokens {
			maxTokensValue = constants.MaxOutputTokens
		}
		genConfig["maxOutputTokens"] = maxTokensValue
	}

	if stop := gjson.GetBytes(rawJSON, fm.stop); stop.Exists() {
		if seqs := collectStopSequences(stop); len(seqs) > 0 {
			genConfig["stopSequences"] = seqs
		}
	}

	if tc := buildThinkingConfig(rawJSON, dialect, model, f); tc != nil {
		genConfig["thinkingConfig"] = tc
	}

	return genConfig
}

// buildThinkingConfig maps each dialect's thinking controls onto the upstream
// thinkingBudget (0 disabled, -1 unlimited, else a literal budget). Feature
// suffixes on the model name override the body.
func buildThinkingConfig(rawJSON []byte, dialect Dialect, model string, f Features) map[string]interface{} {
	if f.NoThinking {
		return map[string]interface{}{"thinkingBudget": 0}
	}
	if f.MaxThinking {
		return map[string]interface{}{
			"thinkingBudget":  constants.ThinkingBudgetMax,
			"includeThoughts": true,
		}
	}

	switch dialect {
	case DialectOpenAI:
		if effort := gjson.GetBytes(rawJSON, "reasoning_effort"); effort.Exists() {
			return thinkingFromEffort(effort.String())
		}
	case DialectClaude:
		if thinking := gjson.GetBytes(rawJSON, "thinking"); thinking.Exists() {
			if thinking.Get("type").String() == "disabled" {
				return map[string]interface{}{"thinkingBudget": 0}
			}
			budget := int(thinking.Get("budget_tokens").Int())
			if budget <= 0 {
				budget = -1
			}
			if budget > constants.ThinkingBudgetMax {
				budget = constants.ThinkingBudgetMax
			}
			return map[string]interface{}{
				"thinkingBudget":  budget,
				"includeThoughts": true,
			}
		}
	case DialectGemini:
		if tc := gjson.GetBytes(rawJSON, "generationConfig.thinkingConfig"); tc.Exists() {
			out := map[string]interface{}{}
			if budget := tc.Get("thinkingBudget"); budget.Exists() {
				out["thinkingBudget"] = int(budget.Int())
			}
			if inc := tc.Get("includeThoughts"); inc.Exists() {
				out["includeThoughts"] = inc.Bool()
			}
			if len(out) > 0 {
				return out
			}
		}
	}

	// Thinking-capable models default to unlimited budget with thoughts on.
	if strings.Contains(model, "pro") || strings.Contains(model, "thinking") {
		return map[string]interface{}{"thinkingBudget": -1, "includeThoughts": true}
	}
	return nil
}

func thinkingFromEffort(effort string) map[string]interface{} {
	switch effort {
	case "none":
		return map[string]interface{}{"thinkingBudget": 0}
	case "low":
		return map[string]interface{}{"thinkingBudget": 1024, "includeThoughts": true}
	case "medium":
		return map[string]interface{}{"thinkingBudget": 8192, "includeThoughts": true}
	case "high":
		return map[string]interface{}{"thinkingBudget": 24576, "includeThoughts": true}
	default:
		return map[string]interface{}{"thinkingBudget": -1, "includeThoughts": true}
	}
}

func collectStopSequences(stop gjson.Result) []string {
	var seqs []string
	if stop.IsArray() {
		for _, s := range stop.Array() {
			seqs = append(seqs, s.String())
		}
	} else if stop.String() != "" {
		seqs = append(seqs, stop.String())
	}
	return seqs
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
