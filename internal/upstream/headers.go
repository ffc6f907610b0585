package upstream

import (
	"net/http"
	"runtime"
	"strings"
)

func (c *Client) applyHeaders(req *http.Request, bearer string) {
	req.Header.Set("Content-Type", "application/json")
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	// Force the variant fingerprint for all upstream requests.
	req.Header.Set("User-Agent", c.variant.UserAgent)

	gv := runtime.Version()
	gv = strings.TrimPrefix(gv, "go")
	if gv == "" {
		gv = "unknown"
	}
	req.Header.Set("X-Goog-Api-Client", "gl-go/"+gv)
	req.Header.Set("Client-Metadata", "ideType=IDE_UNSPECIFIED,platform=PLATFORM_UNSPECIFIED,pluginType=GEMINI")
}
