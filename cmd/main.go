package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gorm.io/gorm"

	"github.com/pawstory/pawstory-server/cmd/api"
	"github.com/pawstory/pawstory-server/cmd/config"
	"github.com/pawstory/pawstory-server/cmd/models"
	"github.com/pawstory/pawstory-server/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations(cfg)
			return
		case "clear-db":
			runDatabaseClear(cfg)
			return
		default:
			log.Fatalf("Unknown command: %s", os.Args[1])
		}
	}

	startServer(cfg)
}

func runMigrations(cfg *config.Config) {
	DB, err := db.NewPSQLStorage(cfg)
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database for migrations")

	if err := performMigrations(DB, cfg); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB, cfg *config.Config) error {
	migrations := []struct {
		model interface{}
		name  string
	}{
		{&models.Member{}, "Member"},
		{&models.Diary{}, "Diary"},
		{&models.DiaryLike{}, "DiaryLike"},
		{&models.DiaryComment{}, "DiaryComment"},
		{&models.Follow{}, "Follow"},
		{&models.Tag{}, "Tag"},
		{&models.Post{}, "Post"},
		{&models.PostLike{}, "PostLike"},
		{&models.PostComment{}, "PostComment"},
	}

	log.Println("Starting database migrations...")
	for _, m := range migrations {
		log.Printf("Migrating %s table...", m.name)
		if err := DB.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", m.name, err)
		}
		log.Printf("%s migration successful", m.name)
	}

	if err := createDirectoryIfNotExist(cfg.UploadDir); err != nil {
		return err
	}
	log.Printf("Directory %s created/verified", cfg.UploadDir)

	log.Println("All migrations and directory setup completed successfully")
	return nil
}

func createDirectoryIfNotExist(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("could not create directory %s: %w", path, err)
		}
	}
	return nil
}

func startServer(cfg *config.Config) {
	DB, err := db.NewPSQLStorage(cfg)
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	server := api.NewApiServer(":"+cfg.ServerPort, DB, cfg)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Printf("Server running on port %s", cfg.ServerPort)

	<-quit
	log.Println("Shutting down server...")
}

func runDatabaseClear(cfg *config.Config) {
	DB, err := db.NewPSQLStorage(cfg)
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()

	log.Println("Preparing to clear database...")

	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)

	if confirmation != "yes" {
		log.Println("Database clearing cancelled.")
		return
	}

	// children before parents
	tables := []interface{}{
		&models.DiaryLike{},
		&models.DiaryComment{},
		&models.PostLike{},
		&models.PostComment{},
		&models.Follow{},
		&models.Diary{},
		&models.Post{},
		&models.Tag{},
		&models.Member{},
	}

	log.Println("Dropping tables...")
	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			log.Printf("Warning dropping table %T: %v", table, err)
		} else {
			log.Printf("Table %T dropped", table)
		}
	}

	log.Println("Database cleared successfully")
}
