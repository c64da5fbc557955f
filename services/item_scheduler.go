// services/item_scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"arcade-economy-system/models"
)

// StartAvailabilityScheduler retires store items whose window has closed or
// whose limited stock is exhausted. It only ever deactivates: bringing items
// back is an admin decision.
func (s *StoreService) StartAvailabilityScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			now := time.Now()

			expired := s.DB.Model(&models.StoreItem{}).
				Where("is_active = ? AND available_until IS NOT NULL AND available_until <= ?", true, now).
				Update("is_active", false)
			if expired.Error != nil {
				log.Printf("[Scheduler] DB error retiring expired items: %v", expired.Error)
				return
			}

			soldOut := s.DB.Model(&models.StoreItem{}).
				Where("is_active = ? AND max_purchases > 0 AND current_purchases >= max_purchases", true).
				Update("is_active", false)
			if soldOut.Error != nil {
				log.Printf("[Scheduler] DB error retiring sold-out items: %v", soldOut.Error)
				return
			}

			if n := expired.RowsAffected + soldOut.RowsAffected; n > 0 {
				log.Printf("✅ Retired %d store item(s) (window closed or sold out)", n)
			}
		}),
	)
}
