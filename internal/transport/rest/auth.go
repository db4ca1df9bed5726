package rest

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stockerhq/stocker/internal/converter/restConverter"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/internal/model/restModel"
	"github.com/stockerhq/stocker/utils"
)

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=admin trader"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=admin trader"`
}

func (ctrl *Controller) Signup(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := ctrl.userService.Register(ctx, req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		slog.Error("got error from userService.Register", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, restConverter.UserResponse(user))
}

func (ctrl *Controller) Login(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := ctrl.userService.Authenticate(ctx, req.Email, req.Password, req.Role)
	if err != nil {
		slog.Error("got error from userService.Authenticate", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.respondError(c, err)
		return
	}

	token, err := ctrl.session.CreateSession(ctx, model.Session{UserID: user.ID, Role: user.Role})
	if err != nil {
		slog.Error("got error from session.CreateSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
		return
	}

	c.JSON(http.StatusOK, restModel.LoginResponse{Token: token, User: restConverter.UserResponse(user)})
}

func (ctrl *Controller) Logout(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	token := c.GetString("sessionToken")

	if err := ctrl.session.DeleteSession(ctx, token); err != nil {
		slog.Error("got error from session.DeleteSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
		return
	}

	c.Status(http.StatusNoContent)
}
