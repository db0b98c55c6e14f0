package taxonomy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweet-james/adreport/internal/model"
)

func TestStateOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bucket string
		want   string
	}{
		{"California Brand", "CA"},
		{"california lsa", "CA"},
		{"Arizona Prospecting", "AZ"},
		{"Georgia LSA", "GA"},
		{"Texas Brand", "TX"},
		{"Crisp/Youtube", "Unknown"},
		{"", "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StateOf(tt.bucket), tt.bucket)
	}
}

func TestResolveCampaignExactName(t *testing.T) {
	t.Parallel()

	tax := New(map[string][]string{
		"California Brand": {"CA-Brand-Search"},
		"Arizona Brand":    {"AZ-Brand-Search"},
		"California LSA":   {"CA-Brand-Search"}, // duplicate name, lower priority
	}, nil, nil)

	bucket, ok := tax.ResolveCampaign(model.CampaignCost{Name: "AZ-Brand-Search"})
	require.True(t, ok)
	assert.Equal(t, "Arizona Brand", bucket)

	// duplicate names resolve to the highest-priority bucket
	bucket, ok = tax.ResolveCampaign(model.CampaignCost{Name: "CA-Brand-Search"})
	require.True(t, ok)
	assert.Equal(t, "California Brand", bucket)

	_, ok = tax.ResolveCampaign(model.CampaignCost{Name: "Unknown Campaign"})
	assert.False(t, ok)
}

func TestResolveCampaignLSAPrecedence(t *testing.T) {
	t.Parallel()

	tax := New(map[string][]string{
		"California Brand": {"LSA Campaign"},
	}, nil, map[string]string{
		"2419159990": "Arizona LSA",
	})

	// customer-id override wins over everything
	bucket, ok := tax.ResolveCampaign(model.CampaignCost{
		Name: "LSA Campaign", IsLSA: true, CustomerID: "2419159990", CustomerName: "Sweet James Los Angeles",
	})
	require.True(t, ok)
	assert.Equal(t, "Arizona LSA", bucket)

	// locality inference from account name
	bucket, ok = tax.ResolveCampaign(model.CampaignCost{
		IsLSA: true, CustomerID: "999", CustomerName: "Sweet James Atlanta",
	})
	require.True(t, ok)
	assert.Equal(t, "Georgia LSA", bucket)

	bucket, ok = tax.ResolveCampaign(model.CampaignCost{
		IsLSA: true, CustomerID: "999", CustomerName: "Sweet James Phoenix Office",
	})
	require.True(t, ok)
	assert.Equal(t, "Arizona LSA", bucket)

	// unresolvable LSA falls through to name match
	bucket, ok = tax.ResolveCampaign(model.CampaignCost{
		Name: "LSA Campaign", IsLSA: true, CustomerID: "999", CustomerName: "Acme",
	})
	require.True(t, ok)
	assert.Equal(t, "California Brand", bucket)
}

func TestResolveCampaignNonLSAIgnoresOverrides(t *testing.T) {
	t.Parallel()

	tax := New(nil, nil, map[string]string{"123": "Texas LSA"})

	_, ok := tax.ResolveCampaign(model.CampaignCost{Name: "x", CustomerID: "123"})
	assert.False(t, ok, "customer-id override applies only to LSA records")
}

func TestResolveUTM(t *testing.T) {
	t.Parallel()

	tax := New(nil, map[string]string{"CA-Brand": "California Brand"}, nil)

	bucket, ok := tax.ResolveUTM("CA-Brand")
	require.True(t, ok)
	assert.Equal(t, "California Brand", bucket)

	// case-insensitive fallback
	bucket, ok = tax.ResolveUTM("ca-brand")
	require.True(t, ok)
	assert.Equal(t, "California Brand", bucket)

	_, ok = tax.ResolveUTM("tx-brand")
	assert.False(t, ok)
	_, ok = tax.ResolveUTM("")
	assert.False(t, ok)
	_, ok = tax.ResolveUTM("-")
	assert.False(t, ok)
}

func TestMutations(t *testing.T) {
	t.Parallel()

	tax := New(nil, nil, nil)

	tax.SetUTM("crisp", "Crisp/Youtube")
	bucket, ok := tax.ResolveUTM("crisp")
	require.True(t, ok)
	assert.Equal(t, "Crisp/Youtube", bucket)

	assert.True(t, tax.DeleteUTM("crisp"))
	assert.False(t, tax.DeleteUTM("crisp"))
	_, ok = tax.ResolveUTM("crisp")
	assert.False(t, ok)

	tax.SetBucketCampaigns("Texas Brand", []string{"TX-Search"})
	bucket, ok = tax.ResolveCampaign(model.CampaignCost{Name: "TX-Search"})
	require.True(t, ok)
	assert.Equal(t, "Texas Brand", bucket)

	tax.ReplaceCampaigns(map[string][]string{"Georgia Brand": {"GA-Search"}})
	_, ok = tax.ResolveCampaign(model.CampaignCost{Name: "TX-Search"})
	assert.False(t, ok, "replace drops prior mapping")
}

func TestAccessorsReturnCopies(t *testing.T) {
	t.Parallel()

	tax := New(map[string][]string{"Texas Brand": {"TX-Search"}}, map[string]string{"a": "Texas Brand"}, nil)

	c := tax.Campaigns()
	c["Texas Brand"][0] = "mutated"
	u := tax.UTM()
	u["a"] = "mutated"

	bucket, ok := tax.ResolveCampaign(model.CampaignCost{Name: "TX-Search"})
	require.True(t, ok)
	assert.Equal(t, "Texas Brand", bucket)
	bucket, ok = tax.ResolveUTM("a")
	require.True(t, ok)
	assert.Equal(t, "Texas Brand", bucket)
}

func TestConcurrentReadWrite(t *testing.T) {
	t.Parallel()

	tax := Default()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tax.SetUTM("token", "California Brand")
				tax.ReplaceCampaigns(map[string][]string{"Texas Brand": {"TX"}})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tax.ResolveUTM("token")
				tax.ResolveCampaign(model.CampaignCost{Name: "TX"})
				tax.Campaigns()
			}
		}()
	}
	wg.Wait()
}

func TestDefaultSeeds(t *testing.T) {
	t.Parallel()

	tax := Default()
	bucket, ok := tax.ResolveCampaign(model.CampaignCost{IsLSA: true, CustomerID: "2065821782"})
	require.True(t, ok)
	assert.Equal(t, "California LSA", bucket)

	assert.Len(t, tax.Buckets(), 13)
	assert.Equal(t, "California Brand", tax.Buckets()[0])
	assert.Equal(t, "Crisp/Youtube", tax.Buckets()[12])
}
