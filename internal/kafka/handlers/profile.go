package handlers

import (
	"encoding/json"

	"grateful.app/notifier/internal/domain"
	"grateful.app/notifier/internal/kafka/registry"
)

// ProfileTopic carries user profile change events from the backend.
const ProfileTopic = "user-profile-events"

func init() {
	registry.Register(ProfileTopic, "PROFILE_UPDATED", handleProfileUpdated)
	registry.Register(ProfileTopic, "AVATAR_CHANGED", handleAvatarChanged)
}

type profileEnv struct {
	EventType string `json:"eventType"`
	EventID   string `json:"eventId"`
	Payload   struct {
		UserID string  `json:"userId"`
		Name   *string `json:"name"`
		Image  *string `json:"image"`
	} `json:"payload"`
}

func parseProfileEnv(data []byte) (*profileEnv, bool) {
	var env profileEnv
	if err := json.Unmarshal(data, &env); err != nil || env.Payload.UserID == "" {
		return nil, false
	}
	return &env, true
}

// handleProfileUpdated forwards only the fields present in the payload.
func handleProfileUpdated(data []byte) *domain.ProfileUpdate {
	env, ok := parseProfileEnv(data)
	if !ok {
		return nil
	}
	patch := domain.ProfilePatch{Name: env.Payload.Name, Image: env.Payload.Image}
	if patch.Empty() {
		return nil
	}
	return &domain.ProfileUpdate{UserID: env.Payload.UserID, Patch: patch}
}

func handleAvatarChanged(data []byte) *domain.ProfileUpdate {
	env, ok := parseProfileEnv(data)
	if !ok || env.Payload.Image == nil {
		return nil
	}
	return &domain.ProfileUpdate{
		UserID: env.Payload.UserID,
		Patch:  domain.ProfilePatch{Image: env.Payload.Image},
	}
}
