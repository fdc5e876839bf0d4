// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package catalog

import (
	"errors"
	"reflect"
	"testing"

	tmdb "github.com/cyruzin/golang-tmdb"
	json "github.com/goccy/go-json"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Fixtures unmarshal API-shaped JSON into the upstream types, the same
// decode path production responses take.
const movieFixture = `{
	"id": 603,
	"title": "The Matrix",
	"original_title": "The Matrix",
	"overview": "A hacker learns the truth about his world.",
	"tagline": "Free your mind.",
	"release_date": "1999-03-30",
	"runtime": 136,
	"vote_average": 8.5,
	"vote_count": 24000,
	"popularity": 64.5,
	"original_language": "en",
	"status": "Released",
	"adult": false,
	"homepage": "https://example.com/matrix",
	"revenue": 463517383,
	"budget": 63000000,
	"poster_path": "/matrix.jpg",
	"genres": [{"id": 28, "name": "Action"}, {"id": 878, "name": "Science Fiction"}],
	"production_companies": [{"id": 79, "name": "Village Roadshow Pictures"}],
	"production_countries": [{"iso_3166_1": "US", "name": "United States of America"}],
	"spoken_languages": [{"iso_639_1": "en", "name": "English"}],
	"belongs_to_collection": {"id": 2344, "name": "The Matrix Collection"},
	"credits": {
		"cast": [
			{"name": "Keanu Reeves", "order": 0},
			{"name": "Laurence Fishburne", "order": 1}
		],
		"crew": [
			{"name": "Lana Wachowski", "job": "Director", "department": "Directing"},
			{"name": "Lana Wachowski", "job": "Writer", "department": "Writing"},
			{"name": "Lilly Wachowski", "job": "Director", "department": "Directing"}
		]
	},
	"keywords": {"keywords": [{"id": 310, "name": "cyberpunk"}, {"id": 4565, "name": "simulation"}]},
	"release_dates": {"results": [
		{"iso_3166_1": "DE", "release_dates": [{"certification": "16"}]},
		{"iso_3166_1": "US", "release_dates": [{"certification": ""}, {"certification": "R"}]}
	]}
}`

func decodeMovie(t *testing.T, payload string) *tmdb.MovieDetails {
	t.Helper()
	var md tmdb.MovieDetails
	if err := json.Unmarshal([]byte(payload), &md); err != nil {
		t.Fatalf("unmarshal movie fixture: %v", err)
	}
	return &md
}

func decodeTV(t *testing.T, payload string) *tmdb.TVDetails {
	t.Helper()
	var td tmdb.TVDetails
	if err := json.Unmarshal([]byte(payload), &td); err != nil {
		t.Fatalf("unmarshal tv fixture: %v", err)
	}
	return &td
}

func TestMovieCandidate(t *testing.T) {
	c := movieCandidate(decodeMovie(t, movieFixture), "US")

	if c.TMDBID != 603 || c.MediaType != models.MediaTypeMovie {
		t.Fatalf("key = (%d, %s), want (603, movie)", c.TMDBID, c.MediaType)
	}
	if c.Title != "The Matrix" || c.OriginalTitle != "The Matrix" {
		t.Errorf("titles = %q / %q", c.Title, c.OriginalTitle)
	}
	if c.Year != 1999 || c.ReleaseDate != "1999-03-30" {
		t.Errorf("year = %d, release date = %q", c.Year, c.ReleaseDate)
	}
	if c.RuntimeMinutes != 136 || c.Rating != 8.5 || c.Votes != 24000 || c.Popularity != 64.5 {
		t.Errorf("numbers = %d/%v/%d/%v", c.RuntimeMinutes, c.Rating, c.Votes, c.Popularity)
	}
	if c.Revenue != 463517383 || c.Budget != 63000000 {
		t.Errorf("revenue/budget = %d/%d", c.Revenue, c.Budget)
	}
	if !reflect.DeepEqual(c.Genres, []string{"Action", "Science Fiction"}) {
		t.Errorf("Genres = %v", c.Genres)
	}
	if !reflect.DeepEqual(c.Keywords, []string{"cyberpunk", "simulation"}) {
		t.Errorf("Keywords = %v", c.Keywords)
	}
	if !reflect.DeepEqual(c.Cast, []string{"Keanu Reeves", "Laurence Fishburne"}) {
		t.Errorf("Cast = %v", c.Cast)
	}
	if !reflect.DeepEqual(c.Directors, []string{"Lana Wachowski", "Lilly Wachowski"}) {
		t.Errorf("Directors = %v", c.Directors)
	}
	if !reflect.DeepEqual(c.Writers, []string{"Lana Wachowski"}) {
		t.Errorf("Writers = %v", c.Writers)
	}
	if !reflect.DeepEqual(c.ProductionCompanies, []string{"Village Roadshow Pictures"}) {
		t.Errorf("ProductionCompanies = %v", c.ProductionCompanies)
	}
	if !reflect.DeepEqual(c.ProductionCountries, []string{"United States of America"}) {
		t.Errorf("ProductionCountries = %v", c.ProductionCountries)
	}
	if !reflect.DeepEqual(c.SpokenLanguages, []string{"English"}) {
		t.Errorf("SpokenLanguages = %v", c.SpokenLanguages)
	}
	if c.CollectionID != 2344 || c.CollectionName != "The Matrix Collection" {
		t.Errorf("collection = %d %q", c.CollectionID, c.CollectionName)
	}
	if c.Certification != "R" {
		t.Errorf("Certification = %q, want R", c.Certification)
	}
	if c.OriginalLanguage != "en" || c.Status != "Released" || c.PosterPath != "/matrix.jpg" {
		t.Errorf("misc fields = %q/%q/%q", c.OriginalLanguage, c.Status, c.PosterPath)
	}
	if !c.Active {
		t.Error("new candidates must start active")
	}
}

func TestMovieCandidateBareResponse(t *testing.T) {
	// No appended sub-resources and no collection: mapping must not
	// dereference the absent append structs.
	c := movieCandidate(decodeMovie(t, `{"id": 42, "title": "Bare", "release_date": ""}`), "US")

	if c.TMDBID != 42 || c.Title != "Bare" {
		t.Fatalf("candidate = %d %q", c.TMDBID, c.Title)
	}
	if c.Year != 0 {
		t.Errorf("Year = %d, want 0", c.Year)
	}
	if c.Cast != nil || c.Keywords != nil || c.Certification != "" {
		t.Errorf("appended fields leaked: cast=%v keywords=%v cert=%q", c.Cast, c.Keywords, c.Certification)
	}
	if c.CollectionID != 0 || c.CollectionName != "" {
		t.Errorf("collection leaked: %d %q", c.CollectionID, c.CollectionName)
	}
}

func TestMovieCertificationFallback(t *testing.T) {
	payload := `{"id": 7, "title": "Elsewhere",
		"release_dates": {"results": [{"iso_3166_1": "DE", "release_dates": [{"certification": "16"}]}]}}`
	c := movieCandidate(decodeMovie(t, payload), "US")
	if c.Certification != "16" {
		t.Fatalf("Certification = %q, want DE fallback 16", c.Certification)
	}
}

const tvFixture = `{
	"id": 1396,
	"name": "Breaking Bad",
	"original_name": "Breaking Bad",
	"overview": "A chemistry teacher turns to crime.",
	"tagline": "All bad things must come to an end.",
	"first_air_date": "2008-01-20",
	"last_air_date": "2013-09-29",
	"in_production": false,
	"number_of_seasons": 5,
	"number_of_episodes": 62,
	"episode_run_time": [47, 60],
	"vote_average": 8.75,
	"vote_count": 12000,
	"popularity": 128.0,
	"original_language": "en",
	"status": "Ended",
	"poster_path": "/bb.jpg",
	"genres": [{"id": 18, "name": "Drama"}],
	"created_by": [{"id": 66633, "name": "Vince Gilligan"}],
	"networks": [{"id": 174, "name": "AMC"}],
	"production_companies": [{"id": 11073, "name": "Sony Pictures Television"}],
	"production_countries": [{"iso_3166_1": "US", "name": "United States of America"}],
	"spoken_languages": [{"iso_639_1": "en", "name": "English"}],
	"credits": {
		"cast": [{"name": "Bryan Cranston", "order": 0}, {"name": "Aaron Paul", "order": 1}],
		"crew": [{"name": "Michelle MacLaren", "job": "Director", "department": "Directing"}]
	},
	"keywords": {"results": [{"id": 12345, "name": "drug cartel"}]},
	"content_ratings": {"results": [
		{"iso_3166_1": "DE", "rating": "16"},
		{"iso_3166_1": "US", "rating": "TV-MA"}
	]}
}`

func TestTVCandidate(t *testing.T) {
	c := tvCandidate(decodeTV(t, tvFixture), "US")

	if c.TMDBID != 1396 || c.MediaType != models.MediaTypeShow {
		t.Fatalf("key = (%d, %s), want (1396, show)", c.TMDBID, c.MediaType)
	}
	if c.Title != "Breaking Bad" || c.Year != 2008 {
		t.Errorf("title/year = %q/%d", c.Title, c.Year)
	}
	if c.FirstAirDate != "2008-01-20" || c.LastAirDate != "2013-09-29" || c.InProduction {
		t.Errorf("air dates = %q..%q in_production=%v", c.FirstAirDate, c.LastAirDate, c.InProduction)
	}
	if c.SeasonCount != 5 || c.EpisodeCount != 62 {
		t.Errorf("seasons/episodes = %d/%d", c.SeasonCount, c.EpisodeCount)
	}
	if !reflect.DeepEqual(c.EpisodeRuntimes, []int{47, 60}) || c.RuntimeMinutes != 47 {
		t.Errorf("runtimes = %v, runtime = %d", c.EpisodeRuntimes, c.RuntimeMinutes)
	}
	if c.Rating != 8.75 || c.Votes != 12000 || c.Popularity != 128 {
		t.Errorf("numbers = %v/%d/%v", c.Rating, c.Votes, c.Popularity)
	}
	if !reflect.DeepEqual(c.CreatedBy, []string{"Vince Gilligan"}) {
		t.Errorf("CreatedBy = %v", c.CreatedBy)
	}
	if !reflect.DeepEqual(c.Networks, []string{"AMC"}) {
		t.Errorf("Networks = %v", c.Networks)
	}
	if !reflect.DeepEqual(c.Keywords, []string{"drug cartel"}) {
		t.Errorf("Keywords = %v", c.Keywords)
	}
	if !reflect.DeepEqual(c.Cast, []string{"Bryan Cranston", "Aaron Paul"}) {
		t.Errorf("Cast = %v", c.Cast)
	}
	if !reflect.DeepEqual(c.Directors, []string{"Michelle MacLaren"}) {
		t.Errorf("Directors = %v", c.Directors)
	}
	if c.Certification != "TV-MA" {
		t.Errorf("Certification = %q, want TV-MA", c.Certification)
	}
	if c.Status != "Ended" || !c.Active {
		t.Errorf("status = %q active = %v", c.Status, c.Active)
	}
}

func TestTVCandidateBareResponse(t *testing.T) {
	c := tvCandidate(decodeTV(t, `{"id": 9, "name": "Pilot Only"}`), "US")
	if c.TMDBID != 9 || c.Title != "Pilot Only" {
		t.Fatalf("candidate = %d %q", c.TMDBID, c.Title)
	}
	if c.Year != 0 || c.RuntimeMinutes != 0 || c.Certification != "" || c.Cast != nil {
		t.Errorf("unexpected defaults: year=%d runtime=%d cert=%q cast=%v",
			c.Year, c.RuntimeMinutes, c.Certification, c.Cast)
	}
}

func TestCastCap(t *testing.T) {
	names := make([]string, 0, maxCastStored+5)
	entries := make([]string, 0, maxCastStored+5)
	for i := 0; i < maxCastStored+5; i++ {
		name := string(rune('A'+i)) + " Actor"
		names = append(names, name)
		entries = append(entries, `{"name": "`+name+`"}`)
	}
	payload := `{"id": 1, "title": "Crowded", "credits": {"cast": [` + joinJSON(entries) + `]}}`

	c := movieCandidate(decodeMovie(t, payload), "US")
	if len(c.Cast) != maxCastStored {
		t.Fatalf("len(Cast) = %d, want %d", len(c.Cast), maxCastStored)
	}
	if !reflect.DeepEqual(c.Cast, names[:maxCastStored]) {
		t.Errorf("Cast order not preserved: %v", c.Cast)
	}
}

func joinJSON(entries []string) string {
	out := ""
	for i, e := range entries {
		if i > 0 {
			out += ","
		}
		out += e
	}
	return out
}

func TestYearOf(t *testing.T) {
	cases := map[string]int{
		"1999-03-30": 1999,
		"2025":       2025,
		"":           0,
		"19":         0,
		"abcd-01-01": 0,
	}
	for date, want := range cases {
		if got := yearOf(date); got != want {
			t.Errorf("yearOf(%q) = %d, want %d", date, got, want)
		}
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"a", "", "a", "b", "a"})
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("dedupe = %v", got)
	}
}

func TestCertRegion(t *testing.T) {
	cases := map[string]string{
		"en-US": "US",
		"pt-BR": "BR",
		"de-de": "DE",
		"en":    "US",
		"":      "US",
	}
	for lang, want := range cases {
		if got := certRegion(lang); got != want {
			t.Errorf("certRegion(%q) = %q, want %q", lang, got, want)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want recerr.Kind
	}{
		{"missing resource", errors.New("code: 34 | The resource you requested could not be found."), recerr.KindNotFound},
		{"bad key", errors.New("code: 7 | Invalid API key: You must be granted a valid key."), recerr.KindAuth},
		{"network", errors.New("connection refused"), recerr.KindTransientExternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := recerr.KindOf(classify("catalog.FetchMovie", tc.err)); got != tc.want {
				t.Fatalf("kind = %v, want %v", got, tc.want)
			}
		})
	}

	// Already-classified errors pass through untouched.
	in := recerr.Input("catalog.FetchMovie", "bad id")
	if got := classify("catalog.FetchMovie", in); !errors.Is(got, in) {
		t.Fatalf("classified error rewrapped: %v", got)
	}
}
