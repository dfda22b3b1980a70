package normalize

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/reelview/internal/model"
)

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestMovieMapsBackendFields(t *testing.T) {
	raw := decode[RawMovie](t, `{
		"_id": "m1", "title": "Inception", "genre": ["Sci-Fi", " Thriller "],
		"releaseYear": 2010, "director": "Christopher Nolan",
		"cast": ["Leonardo DiCaprio", "Elliot Page"], "synopsis": "Dreams within dreams",
		"posterUrl": "https://img/inception.jpg", "averageRating": 4.5,
		"reviewCount": 12, "trending": true, "duration": 148
	}`)

	m, err := Movie(raw)
	require.NoError(t, err)
	assert.Equal(t, model.Movie{
		ID:          "m1",
		Title:       "Inception",
		Year:        2010,
		Genre:       []string{"Sci-Fi", "Thriller"},
		Rating:      4.5,
		Description: "Dreams within dreams",
		PosterURL:   "https://img/inception.jpg",
		Duration:    "2h 28m",
		Director:    "Christopher Nolan",
		Cast:        []string{"Leonardo DiCaprio", "Elliot Page"},
		ReviewCount: 12,
		Trending:    true,
	}, m)
}

func TestMovieDefaults(t *testing.T) {
	m, err := Movie(decode[RawMovie](t, `{"_id": "m2", "title": "Bare"}`))
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.Rating)
	assert.Equal(t, 0, m.Year)
	assert.NotNil(t, m.Genre)
	assert.Empty(t, m.Genre)
	assert.NotNil(t, m.Cast)
	assert.Equal(t, model.PlaceholderPoster, m.PosterURL)
	assert.Equal(t, "", m.Description)
	assert.Equal(t, "", m.Duration)
}

func TestMovieTolerantShapes(t *testing.T) {
	m, err := Movie(decode[RawMovie](t, `{
		"_id": "m3", "genre": "Drama, Crime,", "releaseYear": "1994",
		"averageRating": "NaN", "reviewCount": null, "posterUrl": null,
		"description": "fallback", "featured": "true", "duration": "2h 22m"
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"Drama", "Crime"}, m.Genre)
	assert.Equal(t, 1994, m.Year)
	assert.Equal(t, 0.0, m.Rating)
	assert.Equal(t, model.PlaceholderPoster, m.PosterURL)
	assert.Equal(t, "fallback", m.Description)
	assert.True(t, m.Featured)
	assert.Equal(t, "2h 22m", m.Duration)
}

func TestMovieMissingIDRejected(t *testing.T) {
	_, err := Movie(decode[RawMovie](t, `{"title": "No identity"}`))
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestMovieIsIdempotent(t *testing.T) {
	raw := decode[RawMovie](t, `{"_id": "m4", "genre": ["A"], "cast": ["X"]}`)

	first, err := Movie(raw)
	require.NoError(t, err)
	second, err := Movie(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// 输出与输入不共享切片
	first.Genre[0] = "changed"
	assert.Equal(t, "A", raw.Genre[0])
}

func TestMoviesSkipsRecordsWithoutID(t *testing.T) {
	raws := decode[[]RawMovie](t, `[{"_id": "a"}, {"title": "orphan"}, {"_id": "b"}]`)

	movies, skipped := Movies(raws)
	assert.Equal(t, 1, skipped)
	require.Len(t, movies, 2)
	assert.Equal(t, "a", movies[0].ID)
	assert.Equal(t, "b", movies[1].ID)
}

func TestReviewPopulated(t *testing.T) {
	r, err := Review(decode[RawReview](t, `{
		"_id": "r1", "rating": 4, "text": "Great",
		"user": {"_id": "u1", "username": "alice", "profilePicture": "https://a/p.png"},
		"movie": {"_id": "m1", "title": "Inception"},
		"createdAt": "2024-03-05T22:10:00.000Z", "helpful": 3
	}`))
	require.NoError(t, err)

	assert.Equal(t, model.Review{
		ID:          "r1",
		MovieID:     "m1",
		MovieTitle:  "Inception",
		MoviePoster: model.PlaceholderPoster,
		UserID:      "u1",
		UserName:    "alice",
		UserAvatar:  "https://a/p.png",
		Rating:      4,
		Date:        "2024-03-05",
		Comment:     "Great",
		Helpful:     3,
	}, r)
}

func TestReviewDefaults(t *testing.T) {
	r, err := Review(decode[RawReview](t, `{"id": "r2", "user": "u9", "movie": "m7"}`))
	require.NoError(t, err)

	assert.Equal(t, "r2", r.ID)
	assert.Equal(t, "m7", r.MovieID)
	assert.Equal(t, "u9", r.UserID)
	assert.Equal(t, model.AnonymousName, r.UserName)
	assert.Equal(t, "", r.UserAvatar)
	assert.Equal(t, "", r.Comment)
	assert.Equal(t, "", r.Date)
}

func TestReviewCommentFallback(t *testing.T) {
	r, err := Review(decode[RawReview](t, `{"_id": "r3", "comment": "from comment", "createdAt": "yesterday"}`))
	require.NoError(t, err)
	assert.Equal(t, "from comment", r.Comment)
	assert.Equal(t, "", r.Date)
}

func TestReviewsFillMovieID(t *testing.T) {
	raws := decode[[]RawReview](t, `[{"_id": "r1"}, {"text": "no id"}]`)

	reviews, skipped := Reviews(raws, "m1")
	assert.Equal(t, 1, skipped)
	require.Len(t, reviews, 1)
	assert.Equal(t, "m1", reviews[0].MovieID)
}

func TestWatchlistItem(t *testing.T) {
	it, err := WatchlistItem(decode[RawWatchlistItem](t, `{
		"_id": "w1", "addedAt": "2024-01-02T03:04:05Z",
		"movie": {"_id": "m1", "title": "Heat", "releaseYear": 1995, "genre": ["Crime"]}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "w1", it.ID)
	assert.Equal(t, "m1", it.MovieID)
	assert.Equal(t, "Heat", it.Title)
	assert.Equal(t, model.PlaceholderPoster, it.Poster)
	assert.Equal(t, "2024-01-02", it.AddedAt)
	assert.Equal(t, 1995, it.Movie.Year)
}

func TestWatchlistItemBareMovieList(t *testing.T) {
	it, err := WatchlistItem(decode[RawWatchlistItem](t, `{"_id": "m5", "title": "Alien", "posterUrl": "p.jpg"}`))
	require.NoError(t, err)

	assert.Equal(t, "m5", it.ID)
	assert.Equal(t, "m5", it.MovieID)
	assert.Equal(t, "Alien", it.Title)
	assert.Equal(t, "p.jpg", it.Poster)
}

func TestWatchlistItemUnpopulatedMovie(t *testing.T) {
	it, err := WatchlistItem(decode[RawWatchlistItem](t, `{"_id": "w2", "movie": "m9"}`))
	require.NoError(t, err)
	assert.Equal(t, "m9", it.MovieID)
	assert.Equal(t, model.PlaceholderPoster, it.Poster)
}

func TestWatchlistSkipsBrokenItems(t *testing.T) {
	raws := decode[[]RawWatchlistItem](t, `[
		{"_id": "w1", "movie": {"_id": "m1"}},
		{"_id": "w2", "movie": {"title": "no id"}},
		{"movie": {"_id": "m3"}}
	]`)

	items, skipped := Watchlist(raws)
	assert.Equal(t, 2, skipped)
	require.Len(t, items, 1)
	assert.Equal(t, "w1", items[0].ID)
}

func TestWatchlistItemNullMovie(t *testing.T) {
	_, err := WatchlistItem(decode[RawWatchlistItem](t, `{"_id": "w1", "movie": null, "addedAt": "2024-01-01T00:00:00Z"}`))
	assert.ErrorIs(t, err, ErrMissingID)

	raws, err := List[RawWatchlistItem]([]byte(`[
		{"_id": "w1", "movie": null, "addedAt": "2024-01-01T00:00:00Z"},
		{"_id": "w2", "movie": {"_id": "m2", "title": "Dune"}}
	]`))
	require.NoError(t, err)

	items, skipped := Watchlist(raws)
	assert.Equal(t, 1, skipped)
	require.Len(t, items, 1)
	assert.Equal(t, "m2", items[0].MovieID)
}

func TestUserReviewsSkipMissingMovie(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		skipped int
	}{
		{"populated", `[{"_id": "r1", "movie": {"_id": "m1", "title": "Heat"}}]`, 0},
		{"bare id", `[{"_id": "r1", "movie": "m1"}]`, 0},
		{"null movie", `[{"_id": "r1", "movie": null}]`, 1},
		{"absent movie", `[{"_id": "r1", "text": "orphan"}]`, 1},
		{"movie without id", `[{"_id": "r1", "movie": {"title": "gone"}}]`, 1},
		{"no review id", `[{"movie": "m1"}]`, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reviews, skipped := UserReviews(decode[[]RawReview](t, tc.body))
			assert.Equal(t, tc.skipped, skipped)
			assert.Len(t, reviews, 1-tc.skipped)
			for _, r := range reviews {
				assert.Equal(t, "m1", r.MovieID)
			}
		})
	}
}

func TestUser(t *testing.T) {
	u, err := User(decode[RawUser](t, `{"_id": "u1", "name": "bob", "role": "admin"}`))
	require.NoError(t, err)
	assert.Equal(t, model.User{ID: "u1", Username: "bob", Role: model.RoleAdmin}, u)

	u, err = User(decode[RawUser](t, `{"id": "u2", "username": "eve", "role": "superuser"}`))
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, u.Role)

	_, err = User(RawUser{Username: "ghost"})
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestRating(t *testing.T) {
	r := Rating(decode[RawRating](t, `{"averageRating": "3.5", "reviewCount": 8}`))
	assert.Equal(t, model.RatingSummary{AverageRating: 3.5, ReviewCount: 8}, r)
}

func TestListEnvelopes(t *testing.T) {
	cases := map[string]string{
		"bare":   `[{"_id": "a"}]`,
		"data":   `{"data": [{"_id": "a"}]}`,
		"nested": `{"data": {"movies": [{"_id": "a"}]}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			raws, err := List[RawMovie]([]byte(body), "data", "movies")
			require.NoError(t, err)
			require.Len(t, raws, 1)
			assert.Equal(t, Text("a"), raws[0].ID)
		})
	}

	raws, err := List[RawMovie]([]byte(`{"message": "ok"}`), "data")
	require.NoError(t, err)
	assert.Empty(t, raws)

	_, err = List[RawMovie]([]byte(`not json`), "data")
	assert.Error(t, err)
}

func TestObject(t *testing.T) {
	mv, err := Object[RawMovie]([]byte(`{"movie": {"_id": "m1"}, "reviews": []}`), "movie")
	require.NoError(t, err)
	assert.Equal(t, Text("m1"), mv.ID)

	mv, err = Object[RawMovie]([]byte(`{"_id": "m2", "title": "bare"}`), "movie")
	require.NoError(t, err)
	assert.Equal(t, Text("m2"), mv.ID)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a, ,b ,"))
	assert.Equal(t, []string{}, SplitList(""))
}
