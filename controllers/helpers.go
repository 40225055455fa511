// controllers/helpers.go
package controllers

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FebaRodrigues/track-fit-sub001/middleware"
)

// currentUserID resolves the authenticated member's ObjectID from the request
func currentUserID(c echo.Context) (primitive.ObjectID, error) {
	id, err := middleware.ExtractUserID(c)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return primitive.ObjectIDFromHex(id)
}
