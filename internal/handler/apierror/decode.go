package apierror

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// Fields reads the named fields from a JSON object or a form body. JSON
// numbers and booleans are returned in their literal form.
func Fields(r *http.Request, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("invalid request body: %w", err)
		}
		for _, name := range names {
			raw, ok := body[name]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				out[name] = s
				continue
			}
			if literal := strings.TrimSpace(string(raw)); literal != "null" {
				out[name] = literal
			}
		}
		return out, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}
	for _, name := range names {
		if v, ok := r.Form[name]; ok && len(v) > 0 {
			out[name] = v[0]
		}
	}
	return out, nil
}
