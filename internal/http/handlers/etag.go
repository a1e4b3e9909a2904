package handlers

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// listingETag returns a weak validator over the encoded listing. Any change
// to a listed resource or to its friend, like or genre sets changes it.
func listingETag(kind string, body any) (string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return fmt.Sprintf(`W/"%s-%016x"`, kind, h.Sum64()), nil
}

// etagMatches implements the weak comparison of If-None-Match.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, cand := range strings.Split(header, ",") {
		cand = strings.TrimSpace(cand)
		if cand == "*" || strings.TrimPrefix(cand, "W/") == want {
			return true
		}
	}
	return false
}

// okListing writes body with an ETag, or 304 when the client's copy is
// current. Hashing errors degrade to a plain 200.
func okListing(c *gin.Context, kind string, body any) {
	etag, err := listingETag(kind, body)
	if err == nil {
		c.Header("ETag", etag)
		if etagMatches(c.GetHeader("If-None-Match"), etag) {
			c.Status(http.StatusNotModified)
			return
		}
	}
	ok(c, http.StatusOK, body)
}
