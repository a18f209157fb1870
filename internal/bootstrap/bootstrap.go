package bootstrap

import (
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"adboard-backend/internal/models"
	"adboard-backend/internal/store"
)

// Run seeds the admin user and, for local stacks, a pair of demo clients with
// campaign assignments so the dashboard is not empty on first boot.
func Run(db *gorm.DB, s *store.Store) {
	if db == nil {
		log.Println("bootstrap: skipping admin user; database not initialized")
	} else {
		ensureAdminUser(db)
	}

	if os.Getenv("BOOTSTRAP_DEMO_DATA") == "true" {
		seedDemoClients(db, s)
	}
}

func ensureAdminUser(db *gorm.DB) {
	email := strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))
	if email == "" {
		email = "admin@adboard.local"
	}

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err == nil {
		return
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "Beacon#Atlas37"
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("bootstrap: failed to hash admin password: %v", err)
		return
	}

	name := strings.TrimSpace(os.Getenv("ADMIN_NAME"))
	if name == "" {
		name = "Agency Admin"
	}

	user = models.User{
		Email:    email,
		Password: string(hashed),
		Name:     name,
		Role:     "admin",
		Active:   true,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Printf("bootstrap: failed to create admin user %q: %v", email, err)
		return
	}

	log.Printf("bootstrap: created admin user %q (ID %d)", user.Email, user.ID)
	if os.Getenv("ADMIN_PASSWORD") == "" {
		log.Printf("⚠️  bootstrap: admin user seeded with the default password, change it")
	}
}

func seedDemoClients(db *gorm.DB, s *store.Store) {
	if len(s.Clients()) > 0 {
		return
	}

	demo := []models.Client{
		{
			Name:        "Northwind Outfitters",
			Email:       "marketing@northwind.example",
			AdAccounts:  models.StringArray{"act_1001"},
			CampaignIDs: models.StringArray{"cp_1001", "cp_1002"},
		},
		{
			Name:        "Bluebird Coffee Co",
			Email:       "hello@bluebird.example",
			AdAccounts:  models.StringArray{"act_2001"},
			CampaignIDs: models.StringArray{"cp_2001"},
		},
	}
	for _, client := range demo {
		s.UpsertClient(client)
	}
	log.Printf("bootstrap: seeded %d demo clients", len(demo))

	if db != nil {
		seedClientUsers(db, s.Clients())
	}
}

func seedClientUsers(db *gorm.DB, clients []models.Client) {
	password := os.Getenv("DEMO_CLIENT_PASSWORD")
	if password == "" {
		password = "Viewer#Demo19"
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("bootstrap: failed to hash demo client password: %v", err)
		return
	}

	for i := range clients {
		client := clients[i]
		if client.Email == "" {
			continue
		}
		var existing models.User
		if err := db.Where("email = ?", client.Email).First(&existing).Error; err == nil {
			continue
		}
		user := models.User{
			Email:    client.Email,
			Password: string(hashed),
			Name:     client.Name,
			Role:     "client",
			ClientID: &client.ID,
			Active:   true,
		}
		if err := db.Create(&user).Error; err != nil {
			log.Printf("bootstrap: failed to create client user %q: %v", client.Email, err)
		}
	}
}
