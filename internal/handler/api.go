package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/reelview/internal/apperr"
	"github.com/user/reelview/internal/service"
	"github.com/user/reelview/internal/utils"
)

// ==================== JSON 接口 ====================

// APIMovies 电影列表（与列表页相同的筛选参数）
func (h *Handler) APIMovies(c *gin.Context) {
	movies, err := h.Catalog.Movies(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	list := service.FilterMovies(movies, service.MovieFilter{
		Search: c.Query("q"),
		Genre:  c.Query("genre"),
		Sort:   c.DefaultQuery("sort", service.SortRating),
	})
	utils.Success(c, gin.H{
		"movies": list,
		"total":  len(list),
		"genres": service.Genres(movies),
	})
}

// APIMovieRating 电影评分汇总
func (h *Handler) APIMovieRating(c *gin.Context) {
	rating, err := h.Backend.GetRating(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, rating)
}

// APIWatchlist 当前用户片单
func (h *Handler) APIWatchlist(c *gin.Context) {
	sess, ok := h.current(c)
	if !ok {
		h.fail(c, apperr.New(apperr.KindAuthInvalid, ""))
		return
	}

	items, err := h.Backend.ListWatchlist(c.Request.Context(), sess.Token, sess.User.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	list := service.FilterWatchlist(items, service.WatchlistFilter{
		Search: c.Query("q"),
		Genre:  c.Query("genre"),
		Sort:   c.DefaultQuery("sort", service.SortDateAdded),
	})
	utils.Success(c, gin.H{
		"items": list,
		"total": len(list),
	})
}

// APIAddToWatchlist 加入片单
func (h *Handler) APIAddToWatchlist(c *gin.Context) {
	sess, ok := h.current(c)
	if !ok {
		h.fail(c, apperr.New(apperr.KindAuthInvalid, ""))
		return
	}

	movieID := c.Param("movieId")
	if err := h.Backend.AddToWatchlist(c.Request.Context(), sess.Token, sess.User.ID, movieID); err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessWithMessage(c, "已加入片单", gin.H{"movie_id": movieID})
}

// APIRemoveFromWatchlist 移出片单
func (h *Handler) APIRemoveFromWatchlist(c *gin.Context) {
	sess, ok := h.current(c)
	if !ok {
		h.fail(c, apperr.New(apperr.KindAuthInvalid, ""))
		return
	}

	movieID := c.Param("movieId")
	if err := h.Backend.RemoveFromWatchlist(c.Request.Context(), sess.Token, sess.User.ID, movieID); err != nil {
		h.fail(c, err)
		return
	}
	utils.SuccessWithMessage(c, "已移出片单", gin.H{"movie_id": movieID})
}
