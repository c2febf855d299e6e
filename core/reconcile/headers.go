package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"asset-sync/core/storage"
)

// OneYear is the max-age used for fingerprinted, never-changing assets.
const OneYear = 365 * 24 * time.Hour

// CacheHeaderSet is the header policy attached to every write of a run.
type CacheHeaderSet struct {
	CacheControl       string
	Expires            time.Time
	ContentDisposition string
}

// NewCacheHeaderSet builds a public Cache-Control policy with the given max-age.
// Expires mirrors max-age for clients that ignore Cache-Control.
func NewCacheHeaderSet(maxAge time.Duration, immutable bool, disposition string, now time.Time) CacheHeaderSet {
	seconds := int64(maxAge / time.Second)
	cc := fmt.Sprintf("public, max-age=%d", seconds)
	if immutable {
		cc += ", immutable"
	}

	h := CacheHeaderSet{
		CacheControl:       cc,
		ContentDisposition: disposition,
	}
	if seconds > 0 {
		h.Expires = now.Add(maxAge).UTC()
	}
	return h
}

// ImmutableYear is the policy applied to image assets.
func ImmutableYear(now time.Time) CacheHeaderSet {
	return NewCacheHeaderSet(OneYear, true, "", now)
}

// MaxAge returns the policy's max-age in seconds.
func (h CacheHeaderSet) MaxAge() (int64, bool) {
	return ParseMaxAge(h.CacheControl)
}

// Immutable reports whether the policy carries the immutable directive.
func (h CacheHeaderSet) Immutable() bool {
	return hasDirective(h.CacheControl, "immutable")
}

// IsZero reports whether no header is set.
func (h CacheHeaderSet) IsZero() bool {
	return h.CacheControl == "" && h.Expires.IsZero() && h.ContentDisposition == ""
}

// SatisfiedBy reports whether an object already carrying cacheControl needs no
// update. An update is never planned when it would lower the current max-age.
func (h CacheHeaderSet) SatisfiedBy(cacheControl string) bool {
	want, ok := h.MaxAge()
	if !ok {
		return strings.EqualFold(strings.TrimSpace(cacheControl), strings.TrimSpace(h.CacheControl))
	}
	have, ok := ParseMaxAge(cacheControl)
	if !ok {
		return false
	}
	if have > want {
		return true
	}
	if have < want {
		return false
	}
	return !h.Immutable() || hasDirective(cacheControl, "immutable")
}

// PutOptions merges the policy with a content type.
func (h CacheHeaderSet) PutOptions(contentType string) storage.PutOptions {
	return storage.PutOptions{
		ContentType:        contentType,
		CacheControl:       h.CacheControl,
		ContentDisposition: h.ContentDisposition,
		Expires:            h.Expires,
	}
}

// ParseMaxAge extracts the max-age directive of a Cache-Control value.
func ParseMaxAge(cacheControl string) (int64, bool) {
	for _, part := range strings.Split(cacheControl, ",") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "max-age") {
			continue
		}
		n, err := strconv.ParseInt(strings.Trim(strings.TrimSpace(value), "\""), 10, 64)
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func hasDirective(cacheControl, directive string) bool {
	for _, part := range strings.Split(cacheControl, ",") {
		if strings.EqualFold(strings.TrimSpace(part), directive) {
			return true
		}
	}
	return false
}
