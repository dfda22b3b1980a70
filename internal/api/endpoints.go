package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/user/reelview/internal/apperr"
	"github.com/user/reelview/internal/logging"
	"github.com/user/reelview/internal/metrics"
	"github.com/user/reelview/internal/model"
	"github.com/user/reelview/internal/normalize"
)

// MovieInput 新增电影
type MovieInput struct {
	Title       string   `json:"title"`
	Genre       []string `json:"genre"`
	ReleaseYear int      `json:"releaseYear,omitempty"`
	Director    string   `json:"director,omitempty"`
	Cast        []string `json:"cast"`
	Synopsis    string   `json:"synopsis,omitempty"`
	PosterURL   string   `json:"posterUrl,omitempty"`
}

// ReviewInput 新增/修改评论
type ReviewInput struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// RegisterInput 注册
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginInput 登录
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult 登录/注册结果
type AuthResult struct {
	Token string
	User  model.User
}

// MovieDetail 详情接口返回的电影与评论
type MovieDetail struct {
	Movie   model.Movie
	Reviews []model.Review
}

func esc(s string) string {
	return url.PathEscape(s)
}

func reportSkipped(ctx context.Context, entity string, skipped int) {
	if skipped == 0 {
		return
	}
	metrics.NormalizeSkipped.WithLabelValues(entity).Add(float64(skipped))
	logging.Ctx(ctx).Warn().Str("entity", entity).Int("skipped", skipped).Msg("[API] 跳过缺少 _id 的记录")
}

func decodeErr(err error) error {
	return apperr.Wrap(apperr.KindNetworkFailure, "", fmt.Errorf("解析后端响应失败: %w", err))
}

// ListMovies 电影列表
func (c *Client) ListMovies(ctx context.Context) ([]model.Movie, error) {
	body, err := c.do(ctx, request{endpoint: "list_movies", method: http.MethodGet, path: "/movies"})
	if err != nil {
		return nil, err
	}
	raws, err := normalize.List[normalize.RawMovie](body, "data", "movies")
	if err != nil {
		return nil, decodeErr(err)
	}
	movies, skipped := normalize.Movies(raws)
	reportSkipped(ctx, "movie", skipped)
	return movies, nil
}

// GetMovie 电影详情及评论
func (c *Client) GetMovie(ctx context.Context, id string) (MovieDetail, error) {
	body, err := c.do(ctx, request{endpoint: "get_movie", method: http.MethodGet, path: "/movies/" + esc(id)})
	if err != nil {
		return MovieDetail{}, err
	}
	raw, err := normalize.Object[normalize.RawMovie](body, "movie")
	if err != nil {
		return MovieDetail{}, decodeErr(err)
	}
	movie, err := normalize.Movie(raw)
	if err != nil {
		return MovieDetail{}, apperr.Wrap(apperr.KindNotFound, "电影不存在", err)
	}
	rawReviews, err := normalize.List[normalize.RawReview](body, "reviews")
	if err != nil {
		// 未 populate 的评论只有 ID，忽略即可
		logging.Ctx(ctx).Warn().Err(err).Str("movie", movie.ID).Msg("[API] 评论列表无法解析")
		rawReviews = nil
	}
	reviews, skipped := normalize.Reviews(rawReviews, movie.ID)
	reportSkipped(ctx, "review", skipped)
	return MovieDetail{Movie: movie, Reviews: reviews}, nil
}

// GetRating 评分汇总
func (c *Client) GetRating(ctx context.Context, id string) (model.RatingSummary, error) {
	body, err := c.do(ctx, request{endpoint: "get_rating", method: http.MethodGet, path: "/movies/" + esc(id) + "/rating"})
	if err != nil {
		return model.RatingSummary{}, err
	}
	raw, err := normalize.Object[normalize.RawRating](body, "data")
	if err != nil {
		return model.RatingSummary{}, decodeErr(err)
	}
	return normalize.Rating(raw), nil
}

// CreateMovie 新增电影（管理员）
func (c *Client) CreateMovie(ctx context.Context, token string, in MovieInput) error {
	_, err := c.do(ctx, request{endpoint: "create_movie", method: http.MethodPost, path: "/movies", token: token, body: in})
	return err
}

// CreateReview 发表评论
func (c *Client) CreateReview(ctx context.Context, token, movieID string, in ReviewInput) error {
	_, err := c.do(ctx, request{
		endpoint: "create_review",
		method:   http.MethodPost,
		path:     "/movies/" + esc(movieID) + "/reviews",
		token:    token,
		body:     in,
	})
	return err
}

// UpdateReview 修改评论
func (c *Client) UpdateReview(ctx context.Context, token, movieID, reviewID string, in ReviewInput) error {
	_, err := c.do(ctx, request{
		endpoint: "update_review",
		method:   http.MethodPut,
		path:     "/movies/" + esc(movieID) + "/reviews/" + esc(reviewID),
		token:    token,
		body:     in,
	})
	return err
}

// DeleteReview 删除评论
func (c *Client) DeleteReview(ctx context.Context, token, movieID, reviewID string) error {
	_, err := c.do(ctx, request{
		endpoint: "delete_review",
		method:   http.MethodDelete,
		path:     "/movies/" + esc(movieID) + "/reviews/" + esc(reviewID),
		token:    token,
	})
	return err
}

// ListUserReviews 用户的全部评论
func (c *Client) ListUserReviews(ctx context.Context, token, userID string) ([]model.Review, error) {
	body, err := c.do(ctx, request{
		endpoint: "list_user_reviews",
		method:   http.MethodGet,
		path:     "/movies/reviews/user/" + esc(userID),
		token:    token,
	})
	if err != nil {
		return nil, err
	}
	raws, err := normalize.List[normalize.RawReview](body, "reviews", "data")
	if err != nil {
		return nil, decodeErr(err)
	}
	reviews, skipped := normalize.UserReviews(raws)
	reportSkipped(ctx, "review", skipped)
	return reviews, nil
}

// ListWatchlist 用户片单
func (c *Client) ListWatchlist(ctx context.Context, token, userID string) ([]model.WatchlistItem, error) {
	body, err := c.do(ctx, request{
		endpoint: "list_watchlist",
		method:   http.MethodGet,
		path:     "/users/" + esc(userID) + "/watchlist",
		token:    token,
	})
	if err != nil {
		return nil, err
	}
	raws, err := normalize.List[normalize.RawWatchlistItem](body, "watchlist", "data")
	if err != nil {
		return nil, decodeErr(err)
	}
	items, skipped := normalize.Watchlist(raws)
	reportSkipped(ctx, "watchlist_item", skipped)
	return items, nil
}

// AddToWatchlist 加入片单
func (c *Client) AddToWatchlist(ctx context.Context, token, userID, movieID string) error {
	_, err := c.do(ctx, request{
		endpoint: "add_watchlist",
		method:   http.MethodPost,
		path:     "/users/" + esc(userID) + "/watchlist",
		token:    token,
		body:     map[string]string{"movieId": movieID},
	})
	return err
}

// RemoveFromWatchlist 移出片单
func (c *Client) RemoveFromWatchlist(ctx context.Context, token, userID, movieID string) error {
	_, err := c.do(ctx, request{
		endpoint: "remove_watchlist",
		method:   http.MethodDelete,
		path:     "/users/" + esc(userID) + "/watchlist/" + esc(movieID),
		token:    token,
	})
	return err
}

// Register 注册
func (c *Client) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	if in.Role == "" {
		in.Role = string(model.RoleUser)
	}
	return c.authenticate(ctx, "register", "/auth/register", in)
}

// Login 登录
func (c *Client) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	return c.authenticate(ctx, "login", "/auth/login", in)
}

func (c *Client) authenticate(ctx context.Context, endpoint, path string, in any) (AuthResult, error) {
	body, err := c.do(ctx, request{endpoint: endpoint, method: http.MethodPost, path: path, body: in})
	if err != nil {
		return AuthResult{}, err
	}
	raw, err := normalize.Object[normalize.RawAuth](body, "data")
	if err != nil {
		return AuthResult{}, decodeErr(err)
	}
	if raw.Token == "" {
		return AuthResult{}, apperr.New(apperr.KindAuthInvalid, "服务器未返回登录凭证")
	}
	user, err := normalize.User(raw.User)
	if err != nil {
		return AuthResult{}, apperr.Wrap(apperr.KindAuthInvalid, "服务器返回的用户信息不完整", err)
	}
	return AuthResult{Token: string(raw.Token), User: user}, nil
}
