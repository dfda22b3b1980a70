// Package normalize 将后端返回的各种 JSON 结构统一映射为页面使用的视图模型。
//
// 所有函数都是纯函数：不访问网络、不读取时钟、不修改入参。
// 缺少 _id 的记录单条映射时返回 ErrMissingID，列表映射时跳过并计数。
package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/user/reelview/internal/model"
)

// ErrMissingID 记录缺少标识字段
var ErrMissingID = errors.New("normalize: record has no _id")

// DateLayout 评论日期展示格式
const DateLayout = "2006-01-02"

// Movie 映射单部电影
func Movie(raw RawMovie) (model.Movie, error) {
	id := string(raw.ID)
	if id == "" {
		return model.Movie{}, fmt.Errorf("movie %q: %w", raw.Title, ErrMissingID)
	}

	description := string(raw.Synopsis)
	if description == "" {
		description = string(raw.Description)
	}

	return model.Movie{
		ID:          id,
		Title:       string(raw.Title),
		Year:        int(raw.ReleaseYear),
		Genre:       copyList(raw.Genre),
		Rating:      float64(raw.Rating),
		Description: description,
		PosterURL:   poster(raw.PosterURL),
		Duration:    formatDuration(string(raw.Duration)),
		Director:    string(raw.Director),
		Cast:        copyList(raw.Cast),
		ReviewCount: int(raw.ReviewCount),
		Featured:    bool(raw.Featured),
		Trending:    bool(raw.Trending),
	}, nil
}

// Movies 映射电影列表，返回被跳过的记录数
func Movies(raws []RawMovie) ([]model.Movie, int) {
	out := make([]model.Movie, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		m, err := Movie(raw)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, m)
	}
	return out, skipped
}

// Review 映射单条评论
func Review(raw RawReview) (model.Review, error) {
	id := string(raw.ID)
	if id == "" {
		id = string(raw.AltID)
	}
	if id == "" {
		return model.Review{}, fmt.Errorf("review: %w", ErrMissingID)
	}

	r := model.Review{
		ID:       id,
		MovieID:  raw.Movie.ID,
		UserID:   raw.User.ID,
		UserName: model.AnonymousName,
		Rating:   float64(raw.Rating),
		Date:     formatDate(string(raw.CreatedAt)),
		Comment:  string(raw.Text),
		Helpful:  int(raw.Helpful),
	}
	if r.Comment == "" {
		r.Comment = string(raw.Comment)
	}

	if mv := raw.Movie.Obj; mv != nil {
		r.MovieID = string(mv.ID)
		r.MovieTitle = string(mv.Title)
		r.MoviePoster = poster(mv.PosterURL)
	}
	if u := raw.User.Obj; u != nil {
		r.UserID = string(u.ID)
		if u.Username != "" {
			r.UserName = string(u.Username)
		}
		r.UserAvatar = string(u.ProfilePicture)
	}
	return r, nil
}

// Reviews 映射评论列表；movieID 非空时为未关联电影的评论补齐
func Reviews(raws []RawReview, movieID string) ([]model.Review, int) {
	out := make([]model.Review, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		r, err := Review(raw)
		if err != nil {
			skipped++
			continue
		}
		if r.MovieID == "" {
			r.MovieID = movieID
		}
		out = append(out, r)
	}
	return out, skipped
}

// UserReviews 映射个人主页的评论列表，未关联电影的评论无法编辑或删除，一并跳过
func UserReviews(raws []RawReview) ([]model.Review, int) {
	reviews, skipped := Reviews(raws, "")
	out := reviews[:0]
	for _, r := range reviews {
		if r.MovieID == "" {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out, skipped
}

// WatchlistItem 映射片单条目
func WatchlistItem(raw RawWatchlistItem) (model.WatchlistItem, error) {
	item := model.WatchlistItem{
		ID:      string(raw.ID),
		AddedAt: formatDate(string(raw.AddedAt)),
	}

	switch {
	case raw.Movie.Obj != nil:
		mv, err := Movie(*raw.Movie.Obj)
		if err != nil {
			return model.WatchlistItem{}, fmt.Errorf("watchlist item %q: %w", item.ID, err)
		}
		item.Movie = mv
	case raw.Movie.ID != "":
		// 未 populate 的电影只有 ID
		item.Movie = model.Movie{
			ID:        raw.Movie.ID,
			Genre:     []string{},
			PosterURL: model.PlaceholderPoster,
		}
	default:
		return model.WatchlistItem{}, fmt.Errorf("watchlist item %q has no movie: %w", item.ID, ErrMissingID)
	}

	if item.ID == "" {
		return model.WatchlistItem{}, fmt.Errorf("watchlist item for movie %q: %w", item.Movie.ID, ErrMissingID)
	}
	item.MovieID = item.Movie.ID
	item.Title = item.Movie.Title
	item.Poster = item.Movie.PosterURL
	return item, nil
}

// Watchlist 映射片单列表
func Watchlist(raws []RawWatchlistItem) ([]model.WatchlistItem, int) {
	out := make([]model.WatchlistItem, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		it, err := WatchlistItem(raw)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, it)
	}
	return out, skipped
}

// User 映射用户
func User(raw RawUser) (model.User, error) {
	id := string(raw.ID)
	if id == "" {
		id = string(raw.AltID)
	}
	if id == "" {
		return model.User{}, fmt.Errorf("user: %w", ErrMissingID)
	}
	name := string(raw.Username)
	if name == "" {
		name = string(raw.Name)
	}
	return model.User{
		ID:       id,
		Username: name,
		Email:    string(raw.Email),
		Role:     model.ParseRole(string(raw.Role)),
	}, nil
}

// Rating 映射评分汇总
func Rating(raw RawRating) model.RatingSummary {
	return model.RatingSummary{
		AverageRating: float64(raw.AverageRating),
		ReviewCount:   int(raw.ReviewCount),
	}
}

// List 解析列表响应：兼容裸数组和 {"data": [...]} 之类的信封
func List[T any](body []byte, keys ...string) ([]T, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return []T{}, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("解析列表失败: %w", err)
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	for _, key := range keys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		return List[T](raw, keys...)
	}
	return []T{}, nil
}

// Object 解析单对象响应：优先取信封中的 key，否则视整个响应为对象
func Object[T any](body []byte, key string) (T, error) {
	var out T
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return out, fmt.Errorf("解析响应失败: %w", err)
	}
	if raw, ok := envelope[key]; ok && strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		body = raw
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("解析对象失败: %w", err)
	}
	return out, nil
}

func poster(url Text) string {
	if url == "" {
		return model.PlaceholderPoster
	}
	return string(url)
}

func copyList(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// formatDate ISO 时间转为日期，无法解析时返回空串
func formatDate(s string) string {
	if s == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

// formatDuration 纯数字按分钟处理，如 130 -> "2h 10m"
func formatDuration(s string) string {
	minutes, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	if minutes <= 0 {
		return ""
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
