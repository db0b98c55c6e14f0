// Package taxonomy maps campaign names, UTM tokens and ad-account ids onto
// the fixed bucket taxonomy used for all reporting.
package taxonomy

import (
	"strings"
	"sync"

	"github.com/sweet-james/adreport/internal/model"
)

// BucketPriority is the fixed bucket ordering. Every aggregation emits one
// bucket per entry, in this order, even when a bucket saw no activity.
var BucketPriority = []string{
	"California Brand",
	"California Prospecting",
	"California LSA",
	"Arizona Brand",
	"Arizona Prospecting",
	"Arizona LSA",
	"Georgia Brand",
	"Georgia Prospecting",
	"Georgia LSA",
	"Texas Brand",
	"Texas Prospecting",
	"Texas LSA",
	"Crisp/Youtube",
}

// stateTokens maps lowercase state-name substrings to state codes, checked in
// order.
var stateTokens = []struct {
	token string
	state string
}{
	{"california", "CA"},
	{"arizona", "AZ"},
	{"georgia", "GA"},
	{"texas", "TX"},
}

// lsaLocalities maps lowercase locality hints in an account display name to
// the region-specific LSA bucket, checked in order.
var lsaLocalities = []struct {
	token  string
	bucket string
}{
	{"los angeles", "California LSA"},
	{"la ", "California LSA"},
	{"newport", "California LSA"},
	{"california", "California LSA"},
	{"atlanta", "Georgia LSA"},
	{"roswell", "Georgia LSA"},
	{"georgia", "Georgia LSA"},
	{"phoenix", "Arizona LSA"},
	{"arizona", "Arizona LSA"},
	{"houston", "Texas LSA"},
	{"dallas", "Texas LSA"},
	{"texas", "Texas LSA"},
}

// StateOf infers the state code from a bucket name by case-insensitive
// substring match, or "Unknown" when no state token matches.
func StateOf(bucket string) string {
	lower := strings.ToLower(bucket)
	for _, st := range stateTokens {
		if strings.Contains(lower, st.token) {
			return st.state
		}
	}
	return "Unknown"
}

// Taxonomy is the runtime-mutable mapping configuration. Reads take a
// snapshot under RLock; writes replace whole structures under Lock, so a
// reader never observes a partially-updated map.
type Taxonomy struct {
	mu          sync.RWMutex
	campaigns   map[string][]string // bucket name -> campaign names
	utm         map[string]string   // utm token -> bucket name
	lsaAccounts map[string]string   // ad-account customer id -> bucket name
}

// New creates a Taxonomy from the given mappings. Nil maps are allowed.
func New(campaigns map[string][]string, utm map[string]string, lsaAccounts map[string]string) *Taxonomy {
	t := &Taxonomy{}
	t.ReplaceCampaigns(campaigns)
	t.ReplaceUTM(utm)
	t.ReplaceLSAAccounts(lsaAccounts)
	return t
}

// Buckets returns the fixed bucket priority list.
func (t *Taxonomy) Buckets() []string {
	out := make([]string, len(BucketPriority))
	copy(out, BucketPriority)
	return out
}

// ResolveCampaign resolves a cost record to a bucket name.
//
// Precedence: LSA customer-id override, then LSA locality inference from the
// account display name, then exact campaign-name match in bucket priority
// order. LSA records that fail both LSA rules still fall through to the name
// match. Returns false when nothing matches.
func (t *Taxonomy) ResolveCampaign(c model.CampaignCost) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if c.IsLSA {
		if bucket, ok := t.lsaAccounts[c.CustomerID]; ok && validBucket(bucket) {
			return bucket, true
		}
		lower := strings.ToLower(c.CustomerName)
		for _, loc := range lsaLocalities {
			if strings.Contains(lower, loc.token) {
				return loc.bucket, true
			}
		}
	}

	for _, bucket := range BucketPriority {
		for _, name := range t.campaigns[bucket] {
			if name == c.Name {
				return bucket, true
			}
		}
	}
	return "", false
}

// ResolveUTM resolves a UTM campaign token to a bucket name: exact key match
// first, then case-insensitive. Returns false when unmapped.
func (t *Taxonomy) ResolveUTM(utm string) (string, bool) {
	if utm == "" || utm == "-" {
		return "", false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if bucket, ok := t.utm[utm]; ok {
		return bucket, true
	}
	lower := strings.ToLower(utm)
	for key, bucket := range t.utm {
		if strings.ToLower(key) == lower {
			return bucket, true
		}
	}
	return "", false
}

// Campaigns returns a copy of the bucket -> campaign-names mapping.
func (t *Taxonomy) Campaigns() map[string][]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string][]string, len(t.campaigns))
	for bucket, names := range t.campaigns {
		cp := make([]string, len(names))
		copy(cp, names)
		out[bucket] = cp
	}
	return out
}

// UTM returns a copy of the utm -> bucket mapping.
func (t *Taxonomy) UTM() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]string, len(t.utm))
	for k, v := range t.utm {
		out[k] = v
	}
	return out
}

// LSAAccounts returns a copy of the customer-id -> bucket mapping.
func (t *Taxonomy) LSAAccounts() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]string, len(t.lsaAccounts))
	for k, v := range t.lsaAccounts {
		out[k] = v
	}
	return out
}

// ReplaceCampaigns swaps in a new bucket -> campaign-names mapping.
func (t *Taxonomy) ReplaceCampaigns(m map[string][]string) {
	next := make(map[string][]string, len(m))
	for bucket, names := range m {
		cp := make([]string, len(names))
		copy(cp, names)
		next[bucket] = cp
	}

	t.mu.Lock()
	t.campaigns = next
	t.mu.Unlock()
}

// SetBucketCampaigns replaces the campaign name list for a single bucket.
func (t *Taxonomy) SetBucketCampaigns(bucket string, names []string) {
	cp := make([]string, len(names))
	copy(cp, names)

	t.mu.Lock()
	next := make(map[string][]string, len(t.campaigns)+1)
	for b, n := range t.campaigns {
		next[b] = n
	}
	next[bucket] = cp
	t.campaigns = next
	t.mu.Unlock()
}

// ReplaceUTM swaps in a new utm -> bucket mapping.
func (t *Taxonomy) ReplaceUTM(m map[string]string) {
	next := make(map[string]string, len(m))
	for k, v := range m {
		next[k] = v
	}

	t.mu.Lock()
	t.utm = next
	t.mu.Unlock()
}

// SetUTM adds or updates a single utm -> bucket entry.
func (t *Taxonomy) SetUTM(utm, bucket string) {
	t.mu.Lock()
	next := make(map[string]string, len(t.utm)+1)
	for k, v := range t.utm {
		next[k] = v
	}
	next[utm] = bucket
	t.utm = next
	t.mu.Unlock()
}

// DeleteUTM removes a single utm entry. Returns false when absent.
func (t *Taxonomy) DeleteUTM(utm string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.utm[utm]; !ok {
		return false
	}
	next := make(map[string]string, len(t.utm))
	for k, v := range t.utm {
		if k != utm {
			next[k] = v
		}
	}
	t.utm = next
	return true
}

// ReplaceLSAAccounts swaps in a new customer-id -> bucket mapping.
func (t *Taxonomy) ReplaceLSAAccounts(m map[string]string) {
	next := make(map[string]string, len(m))
	for k, v := range m {
		next[k] = v
	}

	t.mu.Lock()
	t.lsaAccounts = next
	t.mu.Unlock()
}

func validBucket(name string) bool {
	for _, b := range BucketPriority {
		if b == name {
			return true
		}
	}
	return false
}
