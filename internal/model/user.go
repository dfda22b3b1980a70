package model

// Role 用户角色
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole 解析后端返回的角色字符串，未知值一律视为普通用户
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// User 当前登录用户（来自后端 auth 接口）
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
}

// DisplayName 页面展示用名称
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return "User"
}
