// utils/notifications.go
package utils

import (
	"context"
	"fmt"
	"log"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/FebaRodrigues/track-fit-sub001/config"
	"github.com/FebaRodrigues/track-fit-sub001/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// SaveNotification saves a notification to the database
func SaveNotification(db *mongo.Client, userID primitive.ObjectID, title, message, notifType string, data interface{}) error {
	collection := db.Database(config.DatabaseName()).Collection("notifications")

	notification := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Data:      data,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	_, err := collection.InsertOne(context.Background(), notification)
	return err
}

// SendFCMNotification sends a Firebase Cloud Messaging push to a member's device.
// Members without a registered FCM token are skipped silently.
func SendFCMNotification(db *mongo.Client, userID primitive.ObjectID, title, message string, data map[string]string) error {
	collection := db.Database(config.DatabaseName()).Collection("users")
	var user models.User
	err := collection.FindOne(context.Background(), bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}

	if user.FCMToken == "" {
		log.Printf("User %s has no FCM token, skipping push", userID.Hex())
		return nil
	}

	if config.FirebaseApp == nil {
		log.Printf("Firebase app is not initialized, skipping push")
		return nil
	}

	ctx := context.Background()
	client, err := config.FirebaseApp.Messaging(ctx)
	if err != nil {
		log.Printf("Error getting messaging client: %v", err)
		return fmt.Errorf("failed to initialize messaging client: %w", err)
	}

	notificationData := map[string]string{
		"userId":    userID.Hex(),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	for key, value := range data {
		notificationData[key] = value
	}

	fcmMessage := &messaging.Message{
		Token: user.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  message,
		},
		Data: notificationData,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	response, err := client.Send(ctx, fcmMessage)
	if err != nil {
		log.Printf("Error sending FCM message to user %s: %v", userID.Hex(), err)
		return fmt.Errorf("failed to send push notification: %w", err)
	}

	log.Printf("Successfully sent FCM message: %s", response)
	return nil
}

// NotifyUser persists an in-app notification and fires a push for it. Push
// failures are logged but never surfaced to the caller; the in-app record is
// the source of truth.
func NotifyUser(db *mongo.Client, userID primitive.ObjectID, title, message, notifType string, data map[string]string) error {
	payload := make(map[string]interface{}, len(data))
	for key, value := range data {
		payload[key] = value
	}
	if err := SaveNotification(db, userID, title, message, notifType, payload); err != nil {
		return err
	}
	if err := SendFCMNotification(db, userID, title, message, data); err != nil {
		log.Printf("Push delivery failed for user %s: %v", userID.Hex(), err)
	}
	return nil
}
