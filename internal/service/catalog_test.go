package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/reelview/internal/api"
	"github.com/user/reelview/internal/apperr"
	"github.com/user/reelview/internal/model"
)

type fakeSource struct {
	movies    []model.Movie
	detail    api.MovieDetail
	rating    model.RatingSummary
	movieErr  error
	ratingErr error
	// 评分请求等待取消，用于验证 errgroup 取消传播
	blockRating bool
}

func (f *fakeSource) ListMovies(ctx context.Context) ([]model.Movie, error) {
	return f.movies, f.movieErr
}

func (f *fakeSource) GetMovie(ctx context.Context, id string) (api.MovieDetail, error) {
	return f.detail, f.movieErr
}

func (f *fakeSource) GetRating(ctx context.Context, id string) (model.RatingSummary, error) {
	if f.blockRating {
		<-ctx.Done()
		return model.RatingSummary{}, ctx.Err()
	}
	return f.rating, f.ratingErr
}

func sample() []model.Movie {
	return []model.Movie{
		{ID: "1", Title: "Inception", Year: 2010, Genre: []string{"Sci-Fi", "Action"}, Rating: 4.8, Director: "Christopher Nolan", Trending: true},
		{ID: "2", Title: "amélie", Year: 2001, Genre: []string{"Romance"}, Rating: 4.1, Director: "Jean-Pierre Jeunet"},
		{ID: "3", Title: "Dune", Year: 2021, Genre: []string{"Sci-Fi"}, Rating: 4.5, Director: "Denis Villeneuve", Featured: true},
		{ID: "4", Title: "The Hobbit", Year: 2012, Genre: []string{"Fantasy"}, Rating: 3.9, Director: "Peter Jackson"},
	}
}

func ids(movies []model.Movie) []string {
	out := make([]string, 0, len(movies))
	for _, m := range movies {
		out = append(out, m.ID)
	}
	return out
}

func TestFilterMovies(t *testing.T) {
	movies := sample()

	cases := []struct {
		name string
		f    MovieFilter
		want []string
	}{
		{"no filter keeps order", MovieFilter{}, []string{"1", "2", "3", "4"}},
		{"search title case insensitive", MovieFilter{Search: "DUNE"}, []string{"3"}},
		{"search director", MovieFilter{Search: "nolan"}, []string{"1"}},
		{"genre", MovieFilter{Genre: "Sci-Fi"}, []string{"1", "3"}},
		{"genre all", MovieFilter{Genre: "All"}, []string{"1", "2", "3", "4"}},
		{"sort rating", MovieFilter{Sort: SortRating}, []string{"1", "3", "2", "4"}},
		{"sort year", MovieFilter{Sort: SortYear}, []string{"3", "4", "1", "2"}},
		{"sort title", MovieFilter{Sort: SortTitle}, []string{"2", "3", "1", "4"}},
		{"genre and sort", MovieFilter{Genre: "Sci-Fi", Sort: SortYear}, []string{"3", "1"}},
		{"no match", MovieFilter{Search: "zzz"}, []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(FilterMovies(movies, tc.f)))
		})
	}

	// 入参不被修改
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(movies))
}

func TestFilterWatchlist(t *testing.T) {
	var items []model.WatchlistItem
	for _, m := range sample() {
		items = append(items, model.WatchlistItem{ID: "w" + m.ID, MovieID: m.ID, Title: m.Title, Movie: m})
	}

	got := FilterWatchlist(items, WatchlistFilter{Sort: SortDateAdded})
	assert.Len(t, got, 4)
	assert.Equal(t, "w1", got[0].ID)

	got = FilterWatchlist(items, WatchlistFilter{Search: "nolan"})
	assert.Empty(t, got, "片单只按片名搜索")

	got = FilterWatchlist(items, WatchlistFilter{Genre: "Sci-Fi", Sort: SortRating})
	require.Len(t, got, 2)
	assert.Equal(t, "w1", got[0].ID)
	assert.Equal(t, "w3", got[1].ID)

	assert.Equal(t, []string{"Action", "Fantasy", "Romance", "Sci-Fi"}, WatchlistGenres(items))
}

func TestGenres(t *testing.T) {
	assert.Equal(t, []string{"Action", "Fantasy", "Romance", "Sci-Fi"}, Genres(sample()))
	assert.Empty(t, Genres(nil))
}

func TestBuildHome(t *testing.T) {
	home := BuildHome(sample(), 2)

	require.NotNil(t, home.Featured)
	assert.Equal(t, "3", home.Featured.ID)
	assert.Equal(t, []string{"1"}, ids(home.Trending))
	assert.Equal(t, []string{"1", "3"}, ids(home.TopRated))
	require.Len(t, home.Sections, 3)
	assert.Equal(t, "Action", home.Sections[0].Genre)
	assert.Equal(t, "Fantasy", home.Sections[2].Genre)

	empty := BuildHome(nil, 5)
	assert.Nil(t, empty.Featured)
	assert.Empty(t, empty.Sections)
}

func TestCatalogDetail(t *testing.T) {
	src := &fakeSource{
		detail: api.MovieDetail{
			Movie:   model.Movie{ID: "1", Title: "Inception", Rating: 3},
			Reviews: []model.Review{{ID: "r1", MovieID: "1"}},
		},
		rating: model.RatingSummary{AverageRating: 4.5, ReviewCount: 12},
	}

	d, err := NewCatalog(src).Detail(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 4.5, d.Movie.Rating)
	assert.Equal(t, 12, d.Movie.ReviewCount)
	assert.Len(t, d.Reviews, 1)
}

func TestCatalogDetailCancelsSibling(t *testing.T) {
	src := &fakeSource{
		movieErr:    apperr.New(apperr.KindNotFound, ""),
		blockRating: true,
	}

	_, err := NewCatalog(src).Detail(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCatalogMoviesError(t *testing.T) {
	src := &fakeSource{movieErr: apperr.New(apperr.KindNetworkFailure, "")}
	_, err := NewCatalog(src).Movies(context.Background())
	assert.ErrorIs(t, err, apperr.ErrNetworkFailure)
}
