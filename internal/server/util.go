package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	bp = strings.TrimRight(bp, "/")
	return bp
}

// bindBody decodes the JSON body with numbers kept as json.Number so large
// integer ids survive. An empty body decodes to nil. On failure a 400 has
// already been written.
func bindBody(c *gin.Context) (any, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid body: " + err.Error()})
		return nil, false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, true
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return nil, false
	}
	return v, true
}

// bindObject is bindBody for endpoints that take an argument object.
func bindObject(c *gin.Context) (map[string]any, bool) {
	v, ok := bindBody(c)
	if !ok {
		return nil, false
	}
	if v == nil {
		return map[string]any{}, true
	}
	m, isObj := v.(map[string]any)
	if !isObj {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: body must be an object"})
		return nil, false
	}
	return m, true
}

func writeJSON(c *gin.Context, code int, v any) {
	c.Header("Content-Type", "application/json")
	c.Status(code)
	_ = json.NewEncoder(c.Writer).Encode(v)
}
