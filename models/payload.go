package models

import "encoding/json"

// SourcePayload is a decoded external feed document.
type SourcePayload struct {
	Posts []Post
	// MaxAgeDays is set when the document carried a usable settings.maxAgeDays.
	MaxAgeDays *int
}

type payloadJSON struct {
	Settings json.RawMessage `json:"settings"`
	Posts    json.RawMessage `json:"posts"`
}

type settingsJSON struct {
	MaxAgeDays json.RawMessage `json:"maxAgeDays"`
}

// ParseSourcePayload accepts either a bare array of posts (legacy shape) or
// {"settings": {"maxAgeDays": n}, "posts": [...]}. ok is false for any other
// shape, including malformed JSON.
func ParseSourcePayload(data []byte) (payload SourcePayload, ok bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err == nil {
		if elems == nil {
			return SourcePayload{}, false
		}
		return SourcePayload{Posts: decodePosts(elems)}, true
	}

	var doc payloadJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return SourcePayload{}, false
	}

	var postElems []json.RawMessage
	if err := json.Unmarshal(doc.Posts, &postElems); err == nil {
		payload.Posts = decodePosts(postElems)
	} else {
		payload.Posts = []Post{}
	}

	var settings settingsJSON
	if len(doc.Settings) > 0 && json.Unmarshal(doc.Settings, &settings) == nil {
		if days, ok := ParseRetentionValue(settings.MaxAgeDays); ok {
			payload.MaxAgeDays = &days
		}
	}
	return payload, true
}
