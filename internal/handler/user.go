package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/reelview/internal/api"
	"github.com/user/reelview/internal/apperr"
	"github.com/user/reelview/internal/model"
	"github.com/user/reelview/internal/service"
	"golang.org/x/sync/errgroup"
)

// ==================== 用户中心 ====================

// Profile 个人主页：我的影评和片单
func (h *Handler) Profile(c *gin.Context) {
	sess, ok := h.current(c)
	if !ok {
		h.fail(c, apperr.New(apperr.KindAuthInvalid, ""))
		return
	}

	var (
		reviews   []model.Review
		watchlist []model.WatchlistItem
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		reviews, err = h.Backend.ListUserReviews(ctx, sess.Token, sess.User.ID)
		return err
	})
	g.Go(func() error {
		var err error
		watchlist, err = h.Backend.ListWatchlist(ctx, sess.Token, sess.User.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(c, err)
		return
	}

	c.HTML(http.StatusOK, "profile.html", h.RenderData(c, gin.H{
		"Title":     sess.User.DisplayName() + " - " + h.Config.SiteName,
		"User":      sess.User,
		"Reviews":   reviews,
		"Watchlist": watchlist,
		"EditID":    c.Query("edit"),
	}))
}

// UpdateReview 修改自己的影评
func (h *Handler) UpdateReview(c *gin.Context) {
	sess, ok := h.current(c)
	if !ok {
		h.fail(c, apperr.New(apperr.KindAuthInvalid, ""))
		return
	}

	var form editReviewForm
	if err := bindForm(c, &form); err != nil {
		h.flash(c, flashError, apperr.Message(err))
		h.redirectBack(c, "/profile")
		return
	}

	err := h.Backend.UpdateReview(c.Request.Context(), sess.Token, c.Param("movieId"), c.Param("reviewId"), api.ReviewInput{
		Rating: form.Rating,
		Text:   form.Text,
	})
	if err != nil {
		h.mutationFailed(c, err, "/profile")
		return
	}

	h.flash(c, flashSuccess, "影评已更新")
	h.redirectBack(c, "/profile")
}

// DeleteReview 删除自己的影评
func (h *Handler) DeleteReview(c *gin.Context) {
	sess, ok := h.current(c)
	if !ok {
		h.fail(c, apperr.New(apperr.KindAuthInvalid, ""))
		return
	}

	err := h.Backend.DeleteReview(c.Request.Context(), sess.Token, c.Param("movieId"), c.Param("reviewId"))
	if err != nil {
		h.mutationFailed(c, err, "/profile")
		return
	}

	h.flash(c, flashSuccess, "影评已删除")
	h.redirectBack(c, "/profile")
}

// ==================== 片单 ====================

// Watchlist 我的片单
func (h *Handler) Watchlist(c *gin.Context) {
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

	filter := service.WatchlistFilter{
		Search: c.Query("q"),
		Genre:  c.Query("genre"),
		Sort:   c.DefaultQuery("sort", service.SortDateAdded),
	}
	list := service.FilterWatchlist(items, filter)

	c.HTML(http.StatusOK, "watchlist.html", h.RenderData(c, gin.H{
		"Title":  "我的片单 - " + h.Config.SiteName,
		"Items":  list,
		"Total":  len(list),
		"Genres": service.WatchlistGenres(items),
		"Filter": filter,
	}))
}

// RemoveFromWatchlist 移出片单，片单页和个人主页共用
func (h *Handler) RemoveFromWatchlist(c *gin.Context) {
	sess, ok := h.current(c)
	if !ok {
		h.fail(c, apperr.New(apperr.KindAuthInvalid, ""))
		return
	}

	fallback := "/watchlist"
	if c.FullPath() == "/profile/watchlist/:movieId/delete" {
		fallback = "/profile"
	}

	err := h.Backend.RemoveFromWatchlist(c.Request.Context(), sess.Token, sess.User.ID, c.Param("movieId"))
	if err != nil {
		h.mutationFailed(c, err, fallback)
		return
	}

	h.flash(c, flashSuccess, "已移出片单")
	h.redirectBack(c, fallback)
}
