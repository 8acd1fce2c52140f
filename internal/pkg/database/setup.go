package database

import (
	"fmt"
	"log"
	"time"

	"github.com/JulianWeber/AgentFlow/app/models"
	"github.com/JulianWeber/AgentFlow/app/repository"
	"github.com/JulianWeber/AgentFlow/internal/pkg/env"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

func SetupDatabase() {
	var err error
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,   // data source name
			DefaultStringSize:         256,   // default size for string fields
			DisableDatetimePrecision:  true,  // disable datetime precision, which not supported before MySQL 5.6
			DontSupportRenameIndex:    true,  // drop & create when rename index, rename index not supported before MySQL 5.7, MariaDB
			DontSupportRenameColumn:   true,  // `change` when rename column, rename column not supported before MySQL 8, MariaDB
			SkipInitializeWithVersion: false, // auto configure based on currently MySQL version
		}), &gorm.Config{})
		if err == nil {
			repository.InitializeFactory(DB)
			DB.AutoMigrate(
				&models.User{},
				&models.ProviderAccount{},
				&models.App{},
				&models.AgentModel{},
				&models.Connection{},
				&models.UserAgent{},
			)
			seedApps()

			return
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retry number %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// seedApps ensures the built-in provider applications exist.
func seedApps() {
	var count int64
	DB.Model(&models.App{}).Where("slug = ?", models.APP_SLUG_GOOGLE_SHEETS).Count(&count)
	if count > 0 {
		return
	}
	if err := DB.Create(&models.App{
		Name:     "Google Sheets",
		Slug:     models.APP_SLUG_GOOGLE_SHEETS,
		IsActive: true,
	}).Error; err != nil {
		log.Printf("Failed to seed provider apps: %v", err)
	}
}

func GetDB() *gorm.DB {
	return DB
}
