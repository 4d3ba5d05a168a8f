package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
)

var (
	errMissingJSON = errors.New("missing json")
	listItemRe     = regexp.MustCompile(`^\s*(?:\d+[.)、]|[-*•])\s*(.+?)\s*$`)
)

// stripFence removes a surrounding markdown code fence.
func stripFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func extract(content string, open, closing byte) (string, error) {
	start := strings.IndexByte(content, open)
	end := strings.LastIndexByte(content, closing)
	if start == -1 || end == -1 || end <= start {
		return "", errMissingJSON
	}
	return content[start : end+1], nil
}

// parseSuggestions reads a {"path_key": "text"} object. Unknown keys and empty values are dropped.
func parseSuggestions(content string, paths []catalog.Path) (map[catalog.PathKey]string, error) {
	raw, err := extract(stripFence(content), '{', '}')
	if err != nil {
		return nil, err
	}

	payload := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}

	known := make(map[catalog.PathKey]struct{}, len(paths))
	for _, p := range paths {
		known[p.Key] = struct{}{}
	}

	out := make(map[catalog.PathKey]string, len(paths))
	for k, v := range payload {
		key := catalog.PathKey(strings.ToLower(strings.TrimSpace(k)))
		if _, ok := known[key]; !ok {
			continue
		}
		text, ok := v.(string)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		out[key] = strings.TrimSpace(text)
	}
	if len(out) == 0 {
		return nil, errors.New("no usable suggestions")
	}
	return out, nil
}

// parsePrompts accepts a JSON array, a {"prompts": [...]} object or a numbered list.
func parsePrompts(content string) ([]string, error) {
	body := stripFence(content)

	if raw, err := extract(body, '[', ']'); err == nil {
		var prompts []string
		if json.Unmarshal([]byte(raw), &prompts) == nil {
			if out := compact(prompts); len(out) > 0 {
				return out, nil
			}
		}
	}

	if raw, err := extract(body, '{', '}'); err == nil {
		var payload struct {
			Prompts   []string `json:"prompts"`
			Questions []string `json:"questions"`
		}
		if json.Unmarshal([]byte(raw), &payload) == nil {
			if out := compact(append(payload.Prompts, payload.Questions...)); len(out) > 0 {
				return out, nil
			}
		}
	}

	var items []string
	for _, line := range strings.Split(body, "\n") {
		if m := listItemRe.FindStringSubmatch(line); m != nil {
			items = append(items, m[1])
		}
	}
	if out := compact(items); len(out) > 0 {
		return out, nil
	}
	return nil, errors.New("no reflection prompts in output")
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
