package shaping

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-text/typesetting/font/opentype/tables"
)

// Plans are cached per font, keyed by segment properties, user
// features and variation coordinates. Lookups and insertions take the
// same mutex, so concurrent callers are serialized on it; compiled
// plans are immutable, so shaping
// distinct buffers with a shared plan is safe.

type planCache struct {
	mu    sync.Mutex
	plans map[string]*shapePlan
}

func planCacheKey(props SegmentProperties, features []Feature, coords []tables.Coord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d|%d|%s", props.Direction, props.Script, props.Language)
	for _, f := range features {
		fmt.Fprintf(&sb, "|%d=%d@%d:%d", f.Tag, f.Value, f.Start, f.End)
	}
	for _, c := range coords {
		fmt.Fprintf(&sb, "|c%d", c)
	}
	return sb.String()
}

var fontPlanCaches sync.Map // *Font -> *planCache

func (f *Font) shapePlanCached(props SegmentProperties, features []Feature, coords []tables.Coord) *shapePlan {
	cacheAny, _ := fontPlanCaches.LoadOrStore(f, &planCache{})
	cache := cacheAny.(*planCache)
	key := planCacheKey(props, features, coords)

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if plan, ok := cache.plans[key]; ok {
		return plan
	}
	plan := newShapePlan(f.face.Font, props, features, coords)
	if cache.plans == nil {
		cache.plans = make(map[string]*shapePlan)
	}
	cache.plans[key] = plan
	return plan
}
