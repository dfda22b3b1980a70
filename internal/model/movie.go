package model

// PlaceholderPoster 缺失海报时使用的占位图
const PlaceholderPoster = "/static/img/placeholder-poster.svg"

// AnonymousName 评论缺少用户信息时的显示名
const AnonymousName = "Anonymous"

// Movie 电影视图模型
type Movie struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Year        int      `json:"year"`
	Genre       []string `json:"genre"`
	Rating      float64  `json:"rating"`
	Description string   `json:"description"`
	PosterURL   string   `json:"poster_url"`
	Duration    string   `json:"duration"`
	Director    string   `json:"director,omitempty"`
	Cast        []string `json:"cast,omitempty"`
	ReviewCount int      `json:"review_count,omitempty"`
	Featured    bool     `json:"featured,omitempty"`
	Trending    bool     `json:"trending,omitempty"`
}

// HasGenre 是否包含指定类型
func (m Movie) HasGenre(genre string) bool {
	for _, g := range m.Genre {
		if g == genre {
			return true
		}
	}
	return false
}

// Review 评论视图模型
type Review struct {
	ID          string  `json:"id"`
	MovieID     string  `json:"movie_id"`
	MovieTitle  string  `json:"movie_title,omitempty"`
	MoviePoster string  `json:"movie_poster,omitempty"`
	UserID      string  `json:"user_id,omitempty"`
	UserName    string  `json:"user_name"`
	UserAvatar  string  `json:"user_avatar,omitempty"`
	Rating      float64 `json:"rating"`
	Date        string  `json:"date"`
	Comment     string  `json:"comment"`
	Helpful     int     `json:"helpful,omitempty"`
}

// WatchlistItem 片单条目
type WatchlistItem struct {
	ID      string `json:"id"`
	MovieID string `json:"movie_id"`
	Title   string `json:"title"`
	Poster  string `json:"poster"`
	AddedAt string `json:"added_at,omitempty"`
	Movie   Movie  `json:"movie"`
}

// RatingSummary 评分汇总
type RatingSummary struct {
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}
