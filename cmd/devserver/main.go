package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"

	"github.com/yogamaster/yoga-client/internal/devserver"
	"github.com/yogamaster/yoga-client/internal/logger"
	"github.com/yogamaster/yoga-client/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	viper.AutomaticEnv()
	logger.Init(viper.GetString("LOG_LEVEL"), viper.GetString("APP_ENV"))

	port := viper.GetString("DEVSERVER_PORT")
	if port == "" {
		port = "9090"
	}
	secret := viper.GetString("DEVSERVER_JWT_SECRET")
	if secret == "" {
		secret = "dev-only-secret"
	}
	dbPath := viper.GetString("DEVSERVER_DB")
	if dbPath == "" {
		dbPath = "file:devserver?mode=memory&cache=shared&_fk=1"
	}

	store, err := devserver.OpenStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to open devserver store: %v", err)
	}
	defer store.Close()

	seed(store)

	app := devserver.New(store, secret).Echo()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		log.Printf("Devserver starting on port %s...", port)
		if err := app.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start devserver: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down devserver...")
	if err := app.Shutdown(context.Background()); err != nil {
		log.Fatalf("Devserver forced to shutdown: %v", err)
	}
}

// seed loads a small catalog so the client has something to browse.
func seed(store *devserver.Store) {
	ctx := context.Background()
	classes := []models.Class{
		{ID: "c1", Name: "Morning Vinyasa", Price: 25, AvailableSeats: 20, InstructorName: "Asha Rao", InstructorEmail: "asha@example.com", Status: "approved"},
		{ID: "c2", Name: "Restorative Evening Flow", Price: 18, AvailableSeats: 12, InstructorName: "Milo Tan", InstructorEmail: "milo@example.com", Status: "approved"},
		{ID: "c3", Name: "Power Yoga Intensive", Price: 30, AvailableSeats: 1, InstructorName: "Asha Rao", InstructorEmail: "asha@example.com", Status: "approved"},
	}
	for _, c := range classes {
		if err := store.SeedClass(ctx, c); err != nil {
			log.Printf("Failed to seed class %s: %v", c.ID, err)
		}
	}
	for _, u := range []models.NewUserRequest{
		{Name: "Asha Rao", Email: "asha@example.com", Role: models.RoleInstructor},
		{Name: "Milo Tan", Email: "milo@example.com", Role: models.RoleInstructor},
	} {
		if err := store.UpsertUser(ctx, u); err != nil {
			log.Printf("Failed to seed user %s: %v", u.Email, err)
		}
	}
}
