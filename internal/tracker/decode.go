package tracker

import (
	"fmt"
	"strings"

	"github.com/issuepilot/issuepilot/internal/types"
	"github.com/tidwall/gjson"
)

// decodeIssues reads a search reply without trusting its shape. Accepted:
// {"issues": [...]}, {"data": {"issues": [...]}} or a bare array; each
// issue either nests its fields under "fields" or carries them flat.
func decodeIssues(body []byte) ([]types.CandidateIssue, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("gateway returned invalid JSON")
	}

	root := gjson.ParseBytes(body)
	list := root
	if !root.IsArray() {
		list = root.Get("issues")
		if !list.Exists() {
			list = root.Get("data.issues")
		}
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("search response has no issues list")
	}

	issues := make([]types.CandidateIssue, 0, len(list.Array()))
	list.ForEach(func(_, item gjson.Result) bool {
		key := strings.TrimSpace(item.Get("key").String())
		if key == "" {
			return true
		}
		fields := item.Get("fields")
		if !fields.IsObject() {
			fields = item
		}
		issues = append(issues, types.CandidateIssue{
			Key:         key,
			Summary:     fields.Get("summary").String(),
			Description: textOf(fields.Get("description")),
			Status:      nameOf(fields.Get("status")),
			Priority:    nameOf(fields.Get("priority")),
		})
		return true
	})
	return issues, nil
}

// decodeCreateResult reads a create reply: {"success": bool, "key": "...",
// "message": "..."}; a bare {"key": "..."} counts as success
func decodeCreateResult(body []byte) (*types.CreateResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("gateway returned invalid JSON")
	}
	root := gjson.ParseBytes(body)

	key := root.Get("key").String()
	message := root.Get("message").String()
	if message == "" {
		message = root.Get("error").String()
	}

	success := key != ""
	if s := root.Get("success"); s.Exists() {
		success = s.Bool() && key != ""
	}
	return &types.CreateResult{Success: success, Key: key, Message: message}, nil
}

// nameOf accepts either a plain label or an object with a name
func nameOf(r gjson.Result) string {
	if r.IsObject() {
		return r.Get("name").String()
	}
	return r.String()
}

// textOf flattens a description that may be plain text or an Atlassian
// document (nested content nodes carrying text)
func textOf(r gjson.Result) string {
	if !r.IsObject() {
		return r.String()
	}
	var parts []string
	collectText(r, &parts)
	return strings.Join(parts, " ")
}

func collectText(r gjson.Result, parts *[]string) {
	if t := r.Get("text"); t.Type == gjson.String && t.String() != "" {
		*parts = append(*parts, t.String())
	}
	if content := r.Get("content"); content.IsArray() {
		content.ForEach(func(_, child gjson.Result) bool {
			collectText(child, parts)
			return true
		})
	}
}
