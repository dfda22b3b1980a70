package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/reelview/internal/api"
	"github.com/user/reelview/internal/apperr"
	"github.com/user/reelview/internal/auth"
	"github.com/user/reelview/internal/logging"
	"github.com/user/reelview/internal/model"
	"github.com/user/reelview/internal/service"
)

// ==================== 电影 ====================

// Movies 电影列表，支持搜索、类型筛选和排序
func (h *Handler) Movies(c *gin.Context) {
	movies, err := h.Catalog.Movies(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	filter := service.MovieFilter{
		Search: c.Query("q"),
		Genre:  c.Query("genre"),
		Sort:   c.DefaultQuery("sort", service.SortRating),
	}
	list := service.FilterMovies(movies, filter)

	sess, _ := h.current(c)
	c.HTML(http.StatusOK, "movies.html", h.RenderData(c, gin.H{
		"Title":  "全部电影 - " + h.Config.SiteName,
		"Movies": list,
		"Total":  len(list),
		"Genres": service.Genres(movies),
		"Filter": filter,
		// 非管理员不显示添加按钮
		"CanAddMovie": auth.CanAccess(sess, model.RoleAdmin),
	}))
}

// MovieDetail 电影详情
func (h *Handler) MovieDetail(c *gin.Context) {
	id := c.Param("id")

	detail, err := h.Catalog.Detail(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.HTML(http.StatusOK, "movie.html", h.RenderData(c, gin.H{
		"Title":   detail.Movie.Title + " - " + h.Config.SiteName,
		"Movie":   detail.Movie,
		"Reviews": detail.Reviews,
		"Rating":  detail.Rating,
	}))
}

// AddToWatchlist 加入片单
func (h *Handler) AddToWatchlist(c *gin.Context) {
	sess, ok := h.current(c)
	if !ok {
		h.fail(c, apperr.New(apperr.KindAuthInvalid, ""))
		return
	}
	movieID := c.Param("id")

	err := h.Backend.AddToWatchlist(c.Request.Context(), sess.Token, sess.User.ID, movieID)
	if err != nil {
		h.mutationFailed(c, err, "/movie/"+movieID)
		return
	}

	h.flash(c, flashSuccess, "已加入片单")
	h.redirectBack(c, "/movie/"+movieID)
}

// ==================== 评论 ====================

// ReviewNewPage 写评论页
func (h *Handler) ReviewNewPage(c *gin.Context) {
	h.renderReviewForm(c, http.StatusOK, gin.H{
		"Form": reviewForm{MovieID: c.Query("movie")},
	})
}

// ReviewCreate 提交评论，成功后回到电影详情页重新拉取评论
func (h *Handler) ReviewCreate(c *gin.Context) {
	sess, ok := h.current(c)
	if !ok {
		h.fail(c, apperr.New(apperr.KindAuthInvalid, ""))
		return
	}

	var form reviewForm
	if err := bindForm(c, &form); err != nil {
		h.renderReviewForm(c, http.StatusBadRequest, gin.H{
			"Form":   form,
			"Error":  apperr.Message(err),
			"Fields": fieldErrors(err),
		})
		return
	}

	err := h.Backend.CreateReview(c.Request.Context(), sess.Token, form.MovieID, api.ReviewInput{
		Rating: form.Rating,
		Text:   strings.TrimSpace(form.Text),
	})
	if err != nil {
		if apperr.IsAuth(err) {
			h.fail(c, err)
			return
		}
		status := apperr.Status(err)
		h.renderReviewForm(c, status, gin.H{
			"Form":  form,
			"Error": apperr.Message(err),
		})
		return
	}

	logging.Ctx(c.Request.Context()).Info().
		Str("user_id", sess.User.ID).
		Str("movie_id", form.MovieID).
		Msg("发布评论")
	h.flash(c, flashSuccess, "评论已发布")
	c.Redirect(http.StatusSeeOther, "/movie/"+url.PathEscape(form.MovieID))
}

// renderReviewForm 评论表单需要电影下拉列表
func (h *Handler) renderReviewForm(c *gin.Context, status int, data gin.H) {
	movies, err := h.Catalog.Movies(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	movies = service.FilterMovies(movies, service.MovieFilter{Sort: service.SortTitle})

	data["Title"] = "写影评 - " + h.Config.SiteName
	data["Movies"] = movies
	if form, ok := data["Form"].(reviewForm); ok {
		for i := range movies {
			if movies[i].ID == form.MovieID {
				data["Selected"] = movies[i]
				break
			}
		}
	}
	c.HTML(status, "review_new.html", h.RenderData(c, data))
}

// mutationFailed 修改类操作失败：认证错误走统一出口，其余提示后回到来源页
func (h *Handler) mutationFailed(c *gin.Context, err error, fallback string) {
	if apperr.IsAuth(err) {
		h.fail(c, err)
		return
	}
	logging.Ctx(c.Request.Context()).Warn().Err(err).Str("path", c.Request.URL.Path).Msg("操作失败")
	h.flash(c, flashError, apperr.Message(err))
	h.redirectBack(c, fallback)
}
