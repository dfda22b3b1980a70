package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/reelview/internal/apperr"
	"github.com/user/reelview/internal/logging"
)

// ==================== 管理员 ====================

// AddMoviePage 新增电影页面（路由已挂角色守卫）
func (h *Handler) AddMoviePage(c *gin.Context) {
	c.HTML(http.StatusOK, "movie_new.html", h.RenderData(c, gin.H{
		"Title": "添加电影 - " + h.Config.SiteName,
		"Form":  movieForm{},
	}))
}

// AddMovie 新增电影，成功后回到列表页
func (h *Handler) AddMovie(c *gin.Context) {
	sess, ok := h.current(c)
	if !ok {
		h.fail(c, apperr.New(apperr.KindAuthInvalid, ""))
		return
	}

	var form movieForm
	if err := bindForm(c, &form); err != nil {
		h.renderMovieForm(c, http.StatusBadRequest, form, err)
		return
	}

	in := form.toInput()
	if err := h.Backend.CreateMovie(c.Request.Context(), sess.Token, in); err != nil {
		if apperr.IsAuth(err) {
			h.fail(c, err)
			return
		}
		h.renderMovieForm(c, apperr.Status(err), form, err)
		return
	}

	logging.Ctx(c.Request.Context()).Info().
		Str("user_id", sess.User.ID).
		Str("title", in.Title).
		Msg("新增电影")
	h.flash(c, flashSuccess, "电影《"+in.Title+"》已添加")
	c.Redirect(http.StatusSeeOther, "/movies")
}

func (h *Handler) renderMovieForm(c *gin.Context, status int, form movieForm, err error) {
	c.HTML(status, "movie_new.html", h.RenderData(c, gin.H{
		"Title":  "添加电影 - " + h.Config.SiteName,
		"Form":   form,
		"Error":  apperr.Message(err),
		"Fields": fieldErrors(err),
	}))
}
