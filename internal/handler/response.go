package handler

import (
	"errors"
	"net/http"
	"strconv"

	"Campus_Community/internal/logging"
	"Campus_Community/internal/middleware"
	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
	"Campus_Community/internal/service"

	"github.com/gin-gonic/gin"
)

// respondErr 把 service 的哨兵错误映射为状态码
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkg.ErrBanned):
		c.JSON(http.StatusForbidden, gin.H{"msg": "account banned", "logout": true})
	case errors.Is(err, pkg.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"msg": "not found"})
	case errors.Is(err, pkg.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"msg": err.Error()})
	case errors.Is(err, pkg.ErrInvalidParam):
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
	case errors.Is(err, pkg.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"msg": "already exists"})
	case errors.Is(err, pkg.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"msg": err.Error()})
	default:
		logging.Log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Uint64("user_id", middleware.UserID(c)).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
	}
}

func badParams(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid params"})
}

func actorFromCtx(c *gin.Context) service.Actor {
	return service.Actor{ID: middleware.UserID(c), Role: middleware.Role(c)}
}

func userIDFromCtx(c *gin.Context) uint64 {
	return middleware.UserID(c)
}

// pathID 解析路径中的正整数 id，失败时已写 400
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid " + name})
		return 0, false
	}
	return id, true
}

// queryUint 可选的无符号查询参数，缺省为 0
func queryUint(c *gin.Context, name string) (uint64, bool) {
	s := c.Query(name)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid " + name})
		return 0, false
	}
	return v, true
}

func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page"))
	size, _ = strconv.Atoi(c.Query("size"))
	return page, size
}

// scopeQuery 读取 ?club_id= / ?board_id=，两者都可缺省
func scopeQuery(c *gin.Context) (model.Scope, bool) {
	clubID, ok := queryUint(c, "club_id")
	if !ok {
		return model.Scope{}, false
	}
	boardID, ok := queryUint(c, "board_id")
	if !ok {
		return model.Scope{}, false
	}
	return model.Scope{ClubID: clubID, BoardID: boardID}, true
}
