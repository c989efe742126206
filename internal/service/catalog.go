package service

import (
	"context"
	"sort"
	"strings"

	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/model"
	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/repository"
)

// Scoring tiers for free-text merchant matching. First matching tier wins.
const (
	scoreExact        = 1.0
	scoreNamePrefix   = 0.9
	scoreNameContains = 0.8
	scoreWordPrefix   = 0.7
	scoreWordContains = 0.6

	// Scores closer than this are treated as a tie and broken by reward rate.
	scoreTieEpsilon = 0.1

	overlapThreshold = 0.5
	overlapWeight    = 0.5
)

// popularSuggestions is the static pool shown when a search matches nothing.
var popularSuggestions = []string{"pelago", "klook", "shopee", "trip_com"}

// PopularSuggestions returns the static fallback slugs for no-match replies.
func PopularSuggestions() []string {
	return popularSuggestions
}

// Candidate is a merchant with its match score. Matched is false for the
// empty-query popular fallback where no score applies.
type Candidate struct {
	Merchant model.Merchant
	Score    float64
	Matched  bool
}

// SearchResult is the ranked, bounded output of a catalog search.
type SearchResult struct {
	Items       []Candidate
	Popular     bool
	NoMatch     bool
	Suggestions []string
}

// Score rates how well a free-text query matches a merchant name, in [0, 1].
// Pure and deterministic; ties are the ranker's problem.
func Score(name, query string) float64 {
	n := strings.ToLower(strings.TrimSpace(name))
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || n == "" {
		return 0
	}

	switch {
	case n == q:
		return scoreExact
	case strings.HasPrefix(n, q):
		return scoreNamePrefix
	case strings.Contains(n, q):
		return scoreNameContains
	}

	words := strings.FieldsFunc(n, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-' || r == '_'
	})
	for _, w := range words {
		if strings.HasPrefix(w, q) {
			return scoreWordPrefix
		}
	}
	for _, w := range words {
		if strings.Contains(w, q) {
			return scoreWordContains
		}
	}

	if ratio := overlapRatio(n, q); ratio > overlapThreshold {
		return ratio * overlapWeight
	}
	return 0
}

// overlapRatio merges both strings as sorted character multisets and divides
// the common count by the longer string's length.
func overlapRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	sort.Slice(ra, func(i, j int) bool { return ra[i] < ra[j] })
	sort.Slice(rb, func(i, j int) bool { return rb[i] < rb[j] })

	common := 0
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		switch {
		case ra[i] == rb[j]:
			common++
			i++
			j++
		case ra[i] < rb[j]:
			i++
		default:
			j++
		}
	}

	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	return float64(common) / float64(longer)
}

// Rank orders scored candidates: zero scores are dropped, higher scores come
// first, near-ties fall back to reward rate, and the list is cut to pageSize.
// Stable for identical inputs.
func Rank(candidates []Candidate, pageSize int) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Score > 0 {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		diff := a.Score - b.Score
		if diff < 0 {
			diff = -diff
		}
		if diff < scoreTieEpsilon {
			if a.Merchant.BaseMPD != b.Merchant.BaseMPD {
				return a.Merchant.BaseMPD > b.Merchant.BaseMPD
			}
			return a.Merchant.Slug < b.Merchant.Slug
		}
		return a.Score > b.Score
	})

	if pageSize > 0 && len(kept) > pageSize {
		kept = kept[:pageSize]
	}
	return kept
}

// CatalogService scores and ranks free-text queries against the merchant
// catalog. All scoring is pure; the repository is read-only here.
type CatalogService struct {
	merchants    *repository.MerchantRepository
	pageSize     int
	popularCount int
}

func NewCatalogService(merchants *repository.MerchantRepository, pageSize, popularCount int) *CatalogService {
	if pageSize <= 0 {
		pageSize = 8
	}
	if popularCount <= 0 {
		popularCount = 6
	}
	return &CatalogService{merchants: merchants, pageSize: pageSize, popularCount: popularCount}
}

// Search resolves a raw query into a bounded result set. An empty query
// bypasses matching and returns the top merchants by reward rate; a query
// matching nothing yields the no-match sentinel with suggestion slugs.
func (s *CatalogService) Search(ctx context.Context, query string) (SearchResult, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		popular, err := s.merchants.TopByRate(ctx, s.popularCount)
		if err != nil {
			return SearchResult{}, err
		}
		items := make([]Candidate, 0, len(popular))
		for _, m := range popular {
			items = append(items, Candidate{Merchant: m})
		}
		return SearchResult{Items: items, Popular: true}, nil
	}

	catalog, err := s.merchants.ListAll(ctx)
	if err != nil {
		return SearchResult{}, err
	}

	scored := make([]Candidate, 0, len(catalog))
	for _, m := range catalog {
		scored = append(scored, Candidate{
			Merchant: m,
			Score:    Score(m.Name, trimmed),
			Matched:  true,
		})
	}

	ranked := Rank(scored, s.pageSize)
	if len(ranked) == 0 {
		return SearchResult{NoMatch: true, Suggestions: popularSuggestions}, nil
	}
	return SearchResult{Items: ranked}, nil
}
