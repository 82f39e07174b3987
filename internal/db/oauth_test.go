package db

import (
	"context"
	"testing"
)

func TestOAuthTokenRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	token, err := db.GetOAuthToken(ctx, "google")
	if err != nil {
		t.Fatalf("Failed to get missing token: %v", err)
	}
	if token != nil {
		t.Errorf("Expected nil for missing token, got %q", token)
	}

	if err := db.SaveOAuthToken(ctx, "google", []byte(`{"access_token":"abc"}`)); err != nil {
		t.Fatalf("Failed to save token: %v", err)
	}

	token, err = db.GetOAuthToken(ctx, "google")
	if err != nil {
		t.Fatalf("Failed to get token: %v", err)
	}
	if string(token) != `{"access_token":"abc"}` {
		t.Errorf("Unexpected token: %q", token)
	}

	// Replacing the provider's token overwrites it.
	if err := db.SaveOAuthToken(ctx, "google", []byte(`{"access_token":"def"}`)); err != nil {
		t.Fatalf("Failed to replace token: %v", err)
	}
	token, _ = db.GetOAuthToken(ctx, "google")
	if string(token) != `{"access_token":"def"}` {
		t.Errorf("Expected replaced token, got %q", token)
	}

	if err := db.DeleteOAuthToken(ctx, "google"); err != nil {
		t.Fatalf("Failed to delete token: %v", err)
	}
	token, _ = db.GetOAuthToken(ctx, "google")
	if token != nil {
		t.Errorf("Expected nil after delete, got %q", token)
	}
}
