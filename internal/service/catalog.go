package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/user/reelview/internal/api"
	"github.com/user/reelview/internal/model"
	"golang.org/x/sync/errgroup"
)

// 排序方式
const (
	SortRating    = "rating"
	SortYear      = "year"
	SortTitle     = "title"
	SortDateAdded = "dateAdded"
)

// MovieSource 电影数据来源，*api.Client 满足该接口
type MovieSource interface {
	ListMovies(ctx context.Context) ([]model.Movie, error)
	GetMovie(ctx context.Context, id string) (api.MovieDetail, error)
	GetRating(ctx context.Context, id string) (model.RatingSummary, error)
}

// Catalog 电影目录服务
type Catalog struct {
	source MovieSource
}

// NewCatalog 创建目录服务
func NewCatalog(source MovieSource) *Catalog {
	return &Catalog{source: source}
}

// Detail 详情页数据
type Detail struct {
	Movie   model.Movie
	Reviews []model.Review
	Rating  model.RatingSummary
}

// Detail 并发获取电影详情和评分，任一失败则取消另一个
func (s *Catalog) Detail(ctx context.Context, id string) (Detail, error) {
	var (
		detail api.MovieDetail
		rating model.RatingSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail, err = s.source.GetMovie(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		rating, err = s.source.GetRating(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return Detail{}, fmt.Errorf("加载电影详情失败: %w", err)
	}

	// 详情接口里的评分可能是旧值，以评分接口为准
	movie := detail.Movie
	movie.Rating = rating.AverageRating
	movie.ReviewCount = rating.ReviewCount

	return Detail{Movie: movie, Reviews: detail.Reviews, Rating: rating}, nil
}

// Movies 拉取电影列表
func (s *Catalog) Movies(ctx context.Context) ([]model.Movie, error) {
	movies, err := s.source.ListMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载电影列表失败: %w", err)
	}
	return movies, nil
}

// GenreSection 首页按类型分组
type GenreSection struct {
	Genre  string
	Movies []model.Movie
}

// Home 首页数据
type Home struct {
	Featured *model.Movie
	Trending []model.Movie
	TopRated []model.Movie
	Sections []GenreSection
}

// HomeGenres 首页展示的类型
var HomeGenres = []string{"Action", "Sci-Fi", "Fantasy"}

// BuildHome 组装首页
func BuildHome(movies []model.Movie, limit int) Home {
	var home Home

	for i := range movies {
		if movies[i].Featured {
			m := movies[i]
			home.Featured = &m
			break
		}
	}

	for _, m := range movies {
		if m.Trending {
			home.Trending = append(home.Trending, m)
		}
	}
	home.Trending = head(home.Trending, limit)

	home.TopRated = head(FilterMovies(movies, MovieFilter{Sort: SortRating}), limit)
	if home.Featured == nil && len(home.TopRated) > 0 {
		m := home.TopRated[0]
		home.Featured = &m
	}

	for _, genre := range HomeGenres {
		list := FilterMovies(movies, MovieFilter{Genre: genre})
		if len(list) > 0 {
			home.Sections = append(home.Sections, GenreSection{Genre: genre, Movies: head(list, limit)})
		}
	}
	return home
}

// MovieFilter 列表页筛选条件
type MovieFilter struct {
	Search string // 匹配片名或导演，不区分大小写
	Genre  string
	Sort   string
}

// FilterMovies 返回筛选并排序后的新切片，不修改入参
func FilterMovies(movies []model.Movie, f MovieFilter) []model.Movie {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	genre := normalizeGenre(f.Genre)

	out := make([]model.Movie, 0, len(movies))
	for _, m := range movies {
		if search != "" &&
			!strings.Contains(strings.ToLower(m.Title), search) &&
			!strings.Contains(strings.ToLower(m.Director), search) {
			continue
		}
		if genre != "" && !m.HasGenre(genre) {
			continue
		}
		out = append(out, m)
	}

	sortMovies(out, f.Sort)
	return out
}

// WatchlistFilter 片单筛选条件
type WatchlistFilter struct {
	Search string // 只匹配片名
	Genre  string
	Sort   string // 默认按加入顺序
}

// FilterWatchlist 返回筛选并排序后的新切片，不修改入参
func FilterWatchlist(items []model.WatchlistItem, f WatchlistFilter) []model.WatchlistItem {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	genre := normalizeGenre(f.Genre)

	out := make([]model.WatchlistItem, 0, len(items))
	for _, item := range items {
		if search != "" && !strings.Contains(strings.ToLower(item.Title), search) {
			continue
		}
		if genre != "" && !item.Movie.HasGenre(genre) {
			continue
		}
		out = append(out, item)
	}

	switch f.Sort {
	case SortTitle:
		sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title) })
	case SortYear:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Movie.Year > out[j].Movie.Year })
	case SortRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Movie.Rating > out[j].Movie.Rating })
	}
	return out
}

// Genres 从列表中提取全部类型，按字母排序去重
func Genres(movies []model.Movie) []string {
	seen := make(map[string]struct{})
	genres := make([]string, 0)
	for _, m := range movies {
		for _, g := range m.Genre {
			if g == "" {
				continue
			}
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			genres = append(genres, g)
		}
	}
	sort.Strings(genres)
	return genres
}

// WatchlistGenres 片单中出现的类型
func WatchlistGenres(items []model.WatchlistItem) []string {
	movies := make([]model.Movie, 0, len(items))
	for _, item := range items {
		movies = append(movies, item.Movie)
	}
	return Genres(movies)
}

// "All" 和空值都表示不过滤
func normalizeGenre(genre string) string {
	genre = strings.TrimSpace(genre)
	if strings.EqualFold(genre, "all") {
		return ""
	}
	return genre
}

func sortMovies(movies []model.Movie, by string) {
	switch by {
	case SortRating:
		sort.SliceStable(movies, func(i, j int) bool { return movies[i].Rating > movies[j].Rating })
	case SortYear:
		sort.SliceStable(movies, func(i, j int) bool { return movies[i].Year > movies[j].Year })
	case SortTitle:
		sort.SliceStable(movies, func(i, j int) bool {
			return strings.ToLower(movies[i].Title) < strings.ToLower(movies[j].Title)
		})
	}
}

func head[T any](list []T, n int) []T {
	if n > 0 && len(list) > n {
		return list[:n]
	}
	return list
}
