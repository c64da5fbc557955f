package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"arcade-economy-system/models"
)

// ProfileSyncClient pulls changed user profiles from the profile service so
// leaderboards can resolve display metadata locally.
type ProfileSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewProfileSyncClient(db *gorm.DB, baseURL, token string) *ProfileSyncClient {
	return &ProfileSyncClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *ProfileSyncClient) GetChangedProfiles(ctx context.Context, since time.Time) ([]models.ProfileMirror, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/profiles", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call profile service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("profile service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Profiles []models.ProfileMirror `json:"profiles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode profile service response: %w", err)
	}

	return response.Profiles, nil
}

// PollProfiles mirrors profile changes into profile_mirror on an interval.
// The sync window only advances after a successful upsert, so a failed tick
// retries the same window.
func PollProfiles(ctx context.Context, client *ProfileSyncClient, pollInterval time.Duration) {
	log.Println("Starting profile polling (DB-backed)...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Profile polling stopped.")
			return
		case <-ticker.C:
			tickTime := time.Now().UTC()

			profiles, err := client.GetChangedProfiles(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling profiles: %v", err)
				continue
			}

			count := len(profiles)
			if count == 0 {
				continue
			}

			now := time.Now().UTC()
			for i := range profiles {
				profiles[i].LastSyncedAt = now
			}

			if err := client.DB.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "external_user_id"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"tenant_id",
						"display_name",
						"avatar_url",
						"grade_level",
						"is_active",
						"last_synced_at",
						"updated_at",
					}),
				},
			).Create(&profiles).Error; err != nil {
				log.Printf("❌ Failed to upsert %d profile(s) into profile_mirror: %v", count, err)
				continue
			}

			lastSyncTime = tickTime
			log.Printf("✅ Upserted %d profile(s) into profile_mirror table.", count)
		}
	}
}
