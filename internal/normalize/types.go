package normalize

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

var null = []byte("null")

// Text 兼容字符串、数字、布尔的文本字段
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, null) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		// 对象/数组不是文本，按缺失处理
		*t = ""
		return nil
	}
	*t = Text(data)
	return nil
}

// Number 兼容数字与数字字符串，无法解析时为 0
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*n = 0
	if len(data) == 0 || bytes.Equal(data, null) {
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*n = Number(f)
	return nil
}

// Flag 兼容 true/"true"/1 的布尔字段
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch strings.Trim(strings.ToLower(string(bytes.TrimSpace(data))), `"`) {
	case "true", "1", "yes":
		*f = true
	default:
		*f = false
	}
	return nil
}

// StringList 兼容字符串数组与逗号分隔字符串
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*l = nil
	if len(data) == 0 || bytes.Equal(data, null) {
		return nil
	}
	switch data[0] {
	case '[':
		var items []Text
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s := strings.TrimSpace(string(it)); s != "" {
				out = append(out, s)
			}
		}
		*l = out
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*l = SplitList(s)
	}
	return nil
}

// SplitList 拆分逗号分隔的列表并去除空项
func SplitList(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Ref 后端关联字段：可能是裸 ID，也可能是已 populate 的对象
type Ref[T any] struct {
	ID  string
	Obj *T
}

func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = Ref[T]{}
	if len(data) == 0 || bytes.Equal(data, null) {
		return nil
	}
	switch data[0] {
	case '{':
		var obj T
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		r.Obj = &obj
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		r.ID = strings.TrimSpace(s)
	}
	return nil
}

// RawMovie 后端电影结构
type RawMovie struct {
	ID          Text       `json:"_id"`
	Title       Text       `json:"title"`
	Genre       StringList `json:"genre"`
	ReleaseYear Number     `json:"releaseYear"`
	Director    Text       `json:"director"`
	Cast        StringList `json:"cast"`
	Synopsis    Text       `json:"synopsis"`
	Description Text       `json:"description"`
	PosterURL   Text       `json:"posterUrl"`
	Duration    Text       `json:"duration"`
	Rating      Number     `json:"averageRating"`
	ReviewCount Number     `json:"reviewCount"`
	Featured    Flag       `json:"featured"`
	Trending    Flag       `json:"trending"`
}

// RawUserRef 评论中 populate 的用户
type RawUserRef struct {
	ID             Text `json:"_id"`
	Username       Text `json:"username"`
	ProfilePicture Text `json:"profilePicture"`
}

// RawReview 后端评论结构
type RawReview struct {
	ID        Text            `json:"_id"`
	AltID     Text            `json:"id"`
	Movie     Ref[RawMovie]   `json:"movie"`
	User      Ref[RawUserRef] `json:"user"`
	Rating    Number          `json:"rating"`
	Text      Text            `json:"text"`
	Comment   Text            `json:"comment"`
	Helpful   Number          `json:"helpful"`
	CreatedAt Text            `json:"createdAt"`
}

// RawWatchlistItem 后端片单条目：{_id, movie, addedAt}，
// 也兼容直接返回电影对象的列表
type RawWatchlistItem struct {
	ID      Text
	Movie   Ref[RawMovie]
	AddedAt Text
}

func (w *RawWatchlistItem) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*w = RawWatchlistItem{}
	if err := decodeField(fields, "_id", &w.ID); err != nil {
		return err
	}
	if err := decodeField(fields, "addedAt", &w.AddedAt); err != nil {
		return err
	}
	if raw, ok := fields["movie"]; ok {
		// movie 为 null 时保留空 Ref，由映射阶段拒绝
		return w.Movie.UnmarshalJSON(raw)
	}
	// 没有 movie 字段时整条记录即电影
	var mv RawMovie
	if err := json.Unmarshal(data, &mv); err != nil {
		return err
	}
	w.Movie = Ref[RawMovie]{Obj: &mv}
	return nil
}

func decodeField(fields map[string]json.RawMessage, key string, dst *Text) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	return dst.UnmarshalJSON(raw)
}

// RawUser 后端用户结构
type RawUser struct {
	ID       Text `json:"_id"`
	AltID    Text `json:"id"`
	Username Text `json:"username"`
	Name     Text `json:"name"`
	Email    Text `json:"email"`
	Role     Text `json:"role"`
}

// RawRating 评分汇总
type RawRating struct {
	AverageRating Number `json:"averageRating"`
	ReviewCount   Number `json:"reviewCount"`
}

// RawAuth 登录/注册响应
type RawAuth struct {
	Token   Text    `json:"token"`
	User    RawUser `json:"user"`
	Message Text    `json:"message"`
}
