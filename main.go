package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nikhilsoni22/teen-theory-backend/handlers"
	"github.com/nikhilsoni22/teen-theory-backend/logging"
	"github.com/nikhilsoni22/teen-theory-backend/services"
	"github.com/nikhilsoni22/teen-theory-backend/store"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	logging.InitLogger()
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Teen Theory backend...")

	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	mongoDBName := os.Getenv("MONGO_DB_NAME")
	if mongoDBName == "" {
		mongoDBName = "teen_theory_db"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer client.Disconnect(context.TODO())

	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB ping failed: %v", err)
	}
	logging.Logger.Info("Event ID: DB_CONNECTION_SUCCESS, Description: Connected to MongoDB!")

	mongoBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "MongoCB",
		MaxRequests: 1,
		Timeout:     2 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	stores := store.NewMongoStores(client.Database(mongoDBName), mongoBreaker)
	if err := stores.EnsureIndexes(ctx); err != nil {
		logging.Logger.Fatalf("Event ID: DB_INDEX_FAILED, Description: Creating indexes failed: %v", err)
	}

	syncService := services.NewSyncService(stores.Users)
	userService := services.NewUserService(stores.Users)
	projectService := services.NewProjectService(stores.Projects, stores.Users, syncService)
	participantService := services.NewParticipantService(stores.Projects, stores.Users)

	userHandler := handlers.NewUserHandler(userService)
	projectHandler := handlers.NewProjectHandler(projectService, participantService, userService)

	r := mux.NewRouter()
	r.HandleFunc("/users/create", userHandler.Register).Methods("POST")
	r.HandleFunc("/users/login", userHandler.Login).Methods("POST")
	r.HandleFunc("/users/me", userHandler.Me).Methods("GET")

	r.HandleFunc("/projects/create", projectHandler.CreateProject).Methods("POST")
	r.HandleFunc("/projects/all_projects", projectHandler.AllProjects).Methods("GET")
	r.HandleFunc("/projects/my_projects", projectHandler.MyProjects).Methods("GET")
	r.HandleFunc("/projects/by_mentor", projectHandler.ByMentor).Methods("GET")
	r.HandleFunc("/projects/notifications/by_student", projectHandler.NotificationsByStudent).Methods("GET")
	r.HandleFunc("/projects/status", projectHandler.UpdateProjectStatus).Methods("PUT")
	r.HandleFunc("/projects/milestone_status", projectHandler.UpdateMilestoneStatus).Methods("PUT")
	r.HandleFunc("/projects/chat_participants/{projectId}", projectHandler.ChatParticipants).Methods("GET")
	r.HandleFunc("/projects/{projectId}/reconcile", projectHandler.Reconcile).Methods("POST")
	r.HandleFunc("/projects/{projectId}", projectHandler.DeleteProject).Methods("DELETE")

	corsRouter := enableCORS(r)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", serverPort),
		Handler:      corsRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost:%s", serverPort)
	logging.Logger.Fatal(srv.ListenAndServe())
}
