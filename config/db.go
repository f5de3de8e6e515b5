// config/db.go
package config

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectDB establishes connection to MongoDB
func ConnectDB() *mongo.Client {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = os.Getenv("MONGODB_URI")
	}

	// Only use Docker service name as fallback in development
	if mongoURI == "" {
		env := os.Getenv("ENV")
		if env == "development" || env == "dev" {
			mongoURI = "mongodb://mongodb:27017"
		} else {
			log.Fatal("MONGO_URI or MONGODB_URI environment variable is required for production")
		}
	}

	log.Printf("Connecting to MongoDB at: %s", maskMongoURI(mongoURI))

	clientOptions := options.Client().ApplyURI(mongoURI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatal("MongoDB connection error:", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		log.Fatal("MongoDB ping error:", err)
	}

	log.Println("Connected to MongoDB")

	setupCollections(client)

	return client
}

// GetDatabaseName returns the configured database name
func GetDatabaseName() string {
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "zaika"
	}
	return dbName
}

// GetCollection returns MongoDB collection
func GetCollection(client *mongo.Client, collectionName string) *mongo.Collection {
	return client.Database(GetDatabaseName()).Collection(collectionName)
}

// setupCollections ensures all necessary collections and indexes exist
func setupCollections(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := client.Database(GetDatabaseName())

	collections := []string{
		"orders", "vendors", "deliveryPartners", "admins",
		"codSettlements", "payouts", "refunds", "commissionHistory",
	}
	for _, collName := range collections {
		db.CreateCollection(ctx, collName)
	}

	// Email index for admins collection
	adminColl := db.Collection("admins")
	emailIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := adminColl.Indexes().CreateOne(ctx, emailIndexModel); err != nil {
		log.Printf("Error creating email index: %v", err)
	}

	// Order scan indexes
	orderColl := db.Collection("orders")
	orderIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "vendorId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "deliveryPersonId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	if _, err := orderColl.Indexes().CreateMany(ctx, orderIndexes); err != nil {
		log.Printf("Error creating order indexes: %v", err)
	}

	// Ledger indexes. The requestId index is unique so a replayed
	// request can never produce a second entry, sparse so entries
	// without a request id are unconstrained.
	for _, collName := range []string{"codSettlements", "payouts", "refunds"} {
		coll := db.Collection(collName)
		ledgerIndexes := []mongo.IndexModel{
			{Keys: bson.D{{Key: "partyId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{
				Keys:    bson.D{{Key: "requestId", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		}
		if _, err := coll.Indexes().CreateMany(ctx, ledgerIndexes); err != nil {
			log.Printf("Error creating ledger indexes for %s: %v", collName, err)
		}
	}

	// Commission history lookups are per vendor, newest first
	historyColl := db.Collection("commissionHistory")
	historyIndexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "vendorId", Value: 1}, {Key: "changedAt", Value: -1}},
	}
	if _, err := historyColl.Indexes().CreateOne(ctx, historyIndexModel); err != nil {
		log.Printf("Error creating commission history index: %v", err)
	}

	log.Println("Database collections and indexes setup complete")
}

// maskMongoURI masks the password in MongoDB URI for logging
func maskMongoURI(uri string) string {
	if idx := strings.Index(uri, "@"); idx > 0 {
		if colonIdx := strings.LastIndex(uri[:idx], ":"); colonIdx > 0 {
			return uri[:colonIdx+1] + "***" + uri[idx:]
		}
	}
	return uri
}
