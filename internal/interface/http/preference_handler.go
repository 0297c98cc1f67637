package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/appserv/internal/application"
	"github.com/oksasatya/appserv/internal/domain/entity"
	"github.com/oksasatya/appserv/internal/interface/middleware"
	"github.com/oksasatya/appserv/pkg/response"
)

// PreferenceHandler serves /api/radio. Every route runs behind Auth.
type PreferenceHandler struct {
	Svc *application.PreferenceService
}

func NewPreferenceHandler(svc *application.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{Svc: svc}
}

// userID writes the failure itself and returns false when the caller is unknown.
func userID(c *gin.Context) (int64, bool) {
	auth, err := middleware.AuthFrom(c)
	if err != nil {
		response.Fail(c, err)
		return 0, false
	}
	return auth.User.ID, true
}

type insertedResponse struct {
	Inserted int `json:"inserted"`
}

func (h *PreferenceHandler) Recently(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	items, err := h.Svc.Recently(c.Request.Context(), uid)
	reply(c, items, err)
}

type newRecentlyRequest struct {
	Recently []entity.Recently `json:"recently" binding:"required,dive"`
}

func (h *PreferenceHandler) NewRecently(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req newRecentlyRequest
	if !bind(c, &req) {
		return
	}
	n, err := h.Svc.NewRecently(c.Request.Context(), uid, req.Recently)
	reply(c, insertedResponse{Inserted: n}, err)
}

func (h *PreferenceHandler) ModifyRecently(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req entity.Recently
	if !bind(c, &req) {
		return
	}
	reply[any](c, nil, h.Svc.ModifyRecently(c.Request.Context(), uid, req))
}

func (h *PreferenceHandler) ClearRecently(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	reply[any](c, nil, h.Svc.ClearRecently(c.Request.Context(), uid))
}

// Groups GET /api/radio/groups?name=
func (h *PreferenceHandler) Groups(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	groups, err := h.Svc.Groups(c.Request.Context(), uid, c.Query("name"))
	reply(c, groups, err)
}

type newGroupsRequest struct {
	Groups []entity.FavGroup `json:"groups" binding:"required,dive"`
}

func (h *PreferenceHandler) NewGroups(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req newGroupsRequest
	if !bind(c, &req) {
		return
	}
	n, err := h.Svc.NewGroups(c.Request.Context(), uid, req.Groups)
	reply(c, insertedResponse{Inserted: n}, err)
}

type modifyGroupRequest struct {
	OldName string `json:"old_name" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Desc    string `json:"desc"`
}

func (h *PreferenceHandler) ModifyGroup(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req modifyGroupRequest
	if !bind(c, &req) {
		return
	}
	err := h.Svc.ModifyGroup(c.Request.Context(), uid, req.OldName, entity.FavGroup{Name: req.Name, Desc: req.Desc})
	reply[any](c, nil, err)
}

type deleteGroupsRequest struct {
	Names []string `json:"names" binding:"required,min=1"`
}

func (h *PreferenceHandler) DeleteGroups(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req deleteGroupsRequest
	if !bind(c, &req) {
		return
	}
	reply[any](c, nil, h.Svc.DeleteGroups(c.Request.Context(), uid, req.Names))
}

func (h *PreferenceHandler) Favorites(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	favs, err := h.Svc.Favorites(c.Request.Context(), uid)
	reply(c, favs, err)
}

type newFavoritesRequest struct {
	Favorites []entity.StationGroup `json:"favorites" binding:"required,dive"`
}

func (h *PreferenceHandler) NewFavorites(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req newFavoritesRequest
	if !bind(c, &req) {
		return
	}
	n, err := h.Svc.NewFavorites(c.Request.Context(), uid, req.Favorites)
	reply(c, insertedResponse{Inserted: n}, err)
}

type deleteFavoritesRequest struct {
	Stations   []string `json:"favorites"`
	GroupNames []string `json:"group_names"`
}

func (h *PreferenceHandler) DeleteFavorites(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req deleteFavoritesRequest
	if !bind(c, &req) {
		return
	}
	reply[any](c, nil, h.Svc.DeleteFavorites(c.Request.Context(), uid, req.Stations, req.GroupNames))
}

type modifyFavoriteRequest struct {
	StationUUID string   `json:"stationuuid" binding:"required"`
	GroupNames  []string `json:"group_names"`
}

func (h *PreferenceHandler) ModifyFavorite(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req modifyFavoriteRequest
	if !bind(c, &req) {
		return
	}
	reply[any](c, nil, h.Svc.ModifyFavorite(c.Request.Context(), uid, req.StationUUID, req.GroupNames))
}

type syncRequest struct {
	Since int64 `json:"since" form:"since"`
}

// Sync POST /api/radio/sync returns everything created after since.
func (h *PreferenceHandler) Sync(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req syncRequest
	if c.Request.ContentLength == 0 {
		_ = c.ShouldBindQuery(&req)
	} else if !bind(c, &req) {
		return
	}
	set, err := h.Svc.Sync(c.Request.Context(), uid, req.Since)
	reply(c, set, err)
}
