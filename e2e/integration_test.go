//go:build e2e

// Package e2e contains end-to-end integration tests using real DynamoDB tables.
// Run with: go test -tags=e2e -v ./e2e/...
//
// Credentials come from the default AWS chain; set TESSERA_E2E_PROFILE to use
// a named shared profile.
package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"

	"github.com/jacentio/tessera/dynamo"
	"github.com/jacentio/tessera/schema"
	"github.com/jacentio/tessera/store"
)

// Table names are unique per test run to avoid conflicts
const tablePrefix = "tessera-e2e"

var (
	testID    string
	ddbClient *dynamodb.Client
	session   *dynamo.Session
	papers    *store.Store
	entity    = schema.MustEntity("paper", []schema.Field{
		{Name: "title", Type: schema.Text, Kind: schema.Substring},
		{Name: "published", Type: schema.Timestamp, Kind: schema.Value},
		{Name: "body", Type: schema.Text, Kind: schema.Storaged},
		{Name: "rating", Type: schema.Double, Kind: schema.Value},
	}, schema.WithByEntity("author"), schema.WithByMany("issue"))
)

// --- Test Setup & Teardown ---

func TestMain(m *testing.M) {
	testID = uuid.New().String()[:8]
	prefix := fmt.Sprintf("%s-%s", tablePrefix, testID)
	fmt.Printf("Test ID: %s\n", testID)

	ctx := context.Background()
	var opts []func(*config.LoadOptions) error
	if profile := os.Getenv("TESSERA_E2E_PROFILE"); profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}
	ddbClient = dynamodb.NewFromConfig(cfg)

	session = dynamo.New(ddbClient, dynamo.Config{TablePrefix: prefix}, entity)
	fmt.Println("Creating test tables...")
	if err := session.Provision(ctx, dynamo.ProvisionOptions{Wait: true}); err != nil {
		fmt.Printf("Failed to create tables: %v\n", err)
		deleteTables(ctx)
		os.Exit(1)
	}
	fmt.Println("All tables created and active")

	papers, err = store.New(session, entity, store.DefaultConfig())
	if err != nil {
		fmt.Printf("Failed to create store: %v\n", err)
		deleteTables(ctx)
		os.Exit(1)
	}

	code := m.Run()

	deleteTables(ctx)
	os.Exit(code)
}

func deleteTables(ctx context.Context) {
	fmt.Println("Deleting test tables...")
	for _, t := range schema.Tables(entity) {
		name := session.TableName(t.Name)
		if _, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(name)}); err != nil {
			fmt.Printf("Warning: failed to delete table %s: %v\n", name, err)
		}
	}
	fmt.Println("Tables deleted")
}

// group isolates each test in its own partition.
func group() int64 {
	return int64(uuid.New().ID())
}

func fullValues(title string, published time.Time, body string, rating float64) []store.Value {
	return []store.Value{store.Text(title), store.Time(published), store.Text(body), store.Float(rating)}
}

// --- Write & Read Tests ---

func TestInsertFull_RoundTrip(t *testing.T) {
	ctx := context.Background()
	g := group()
	published := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := papers.InsertFull(ctx, g, 1, fullValues("Wide Rows", published, "text", 4.5), store.Quorum); err != nil {
		t.Fatalf("InsertFull failed: %v", err)
	}

	row, err := papers.FirstByID(ctx, g, 1)
	if err != nil {
		t.Fatalf("FirstByID failed: %v", err)
	}
	if got := row.Get("title").AsText(); got != "Wide Rows" {
		t.Errorf("expected title %q, got %q", "Wide Rows", got)
	}
	if !row.Get("published").AsTime().Equal(published) {
		t.Errorf("expected published %v, got %v", published, row.Get("published").AsTime())
	}
	if row.CreatedAt.IsZero() || row.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	byRating, err := papers.FirstByField(ctx, "rating", g, store.Float(4.5))
	if err != nil {
		t.Fatalf("FirstByField failed: %v", err)
	}
	if byRating.ID != 1 {
		t.Errorf("expected id 1, got %d", byRating.ID)
	}
}

func TestInsertPartial_MovesProjection(t *testing.T) {
	ctx := context.Background()
	g := group()

	if err := papers.InsertPartial(ctx, g, 1, []store.FieldValue{store.Set("title", store.Text("Draft"))}, store.Quorum); err != nil {
		t.Fatalf("InsertPartial failed: %v", err)
	}
	if err := papers.InsertPartial(ctx, g, 1, []store.FieldValue{store.Set("title", store.Text("Final"))}, store.Quorum); err != nil {
		t.Fatalf("InsertPartial failed: %v", err)
	}

	if _, err := papers.FirstByField(ctx, "title", g, store.Text("Draft")); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for the old title, got %v", err)
	}
	rows, err := papers.SearchSubstring(ctx, "title", g, "fin", 10)
	if err != nil {
		t.Fatalf("SearchSubstring failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != 1 {
		t.Errorf("expected paper 1, got %d rows", len(rows))
	}
	rows, err = papers.SearchSubstring(ctx, "title", g, "raf", 10)
	if err != nil {
		t.Fatalf("SearchSubstring failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows for the old title, got %d", len(rows))
	}
}

func TestListPage(t *testing.T) {
	ctx := context.Background()
	g := group()

	for id := int64(1); id <= 12; id++ {
		if err := papers.InsertPartial(ctx, g, id, []store.FieldValue{store.Set("rating", store.Float(float64(id)))}, store.Quorum); err != nil {
			t.Fatalf("InsertPartial failed: %v", err)
		}
	}

	page, err := papers.ListPage(ctx, g, 5, nil)
	if err != nil {
		t.Fatalf("ListPage failed: %v", err)
	}
	if len(page) != 5 || page[0].ID != 12 || page[4].ID != 8 {
		t.Fatalf("expected ids 12..8, got %d rows", len(page))
	}

	before := page[4].ID
	page, err = papers.ListPage(ctx, g, 5, &before)
	if err != nil {
		t.Fatalf("ListPage failed: %v", err)
	}
	if len(page) != 5 || page[0].ID != 7 {
		t.Errorf("expected second page to start at 7, got %d rows", len(page))
	}
}

func TestRelations(t *testing.T) {
	ctx := context.Background()
	g := group()

	for id := int64(1); id <= 3; id++ {
		if err := papers.InsertPartial(ctx, g, id, []store.FieldValue{store.Set("title", store.Text(fmt.Sprintf("Paper %d", id)))}, store.Quorum,
			store.WithEntity("author", 42)); err != nil {
			t.Fatalf("InsertPartial failed: %v", err)
		}
	}
	if err := papers.AttachMany(ctx, "issue", g, 7, 2, 1, store.Quorum); err != nil {
		t.Fatalf("AttachMany failed: %v", err)
	}

	rows, err := papers.ListByEntity(ctx, "author", g, 42, 10, nil)
	if err != nil {
		t.Fatalf("ListByEntity failed: %v", err)
	}
	if len(rows) != 3 || rows[0].ID != 3 {
		t.Errorf("expected 3 papers newest first, got %d", len(rows))
	}

	if err := papers.Detach(ctx, "author", g, 42, 3, store.Quorum); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	rows, err = papers.ListByEntity(ctx, "author", g, 42, 10, nil)
	if err != nil {
		t.Fatalf("ListByEntity failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 papers after detach, got %d", len(rows))
	}

	rows, err = papers.ListByMany(ctx, "issue", g, 7, 10, nil)
	if err != nil {
		t.Fatalf("ListByMany failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != 2 || rows[0].Seq != 1 {
		t.Errorf("expected paper 2 at seq 1, got %d rows", len(rows))
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	g := group()

	if err := papers.InsertFull(ctx, g, 1, fullValues("Gone", time.Now(), "", 1), store.Quorum); err != nil {
		t.Fatalf("InsertFull failed: %v", err)
	}
	if err := papers.Delete(ctx, g, 1, store.Quorum); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := papers.FirstByID(ctx, g, 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := papers.FirstByField(ctx, "title", g, store.Text("Gone")); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected projection removed, got %v", err)
	}
}

func TestRepairProjection(t *testing.T) {
	ctx := context.Background()
	g := group()

	if err := papers.InsertPartial(ctx, g, 1, []store.FieldValue{store.Set("title", store.Text("Current"))}, store.Quorum); err != nil {
		t.Fatalf("InsertPartial failed: %v", err)
	}

	// Plant the projection a lost race would leave behind
	stale := store.Statement{
		Op:      store.OpInsert,
		Table:   schema.ByFieldTable("paper", "title"),
		Columns: []string{"group", "title", "id"},
		Values:  []store.Value{store.Int(g), store.Text("Stale"), store.Int(1)},
	}
	if err := session.ExecuteBatch(ctx, []store.Statement{stale}, store.Quorum); err != nil {
		t.Fatalf("ExecuteBatch failed: %v", err)
	}

	if err := papers.RepairProjection(ctx, g, 1, "title", store.Text("Stale"), store.Quorum); err != nil {
		t.Fatalf("RepairProjection failed: %v", err)
	}
	if _, err := papers.FirstByField(ctx, "title", g, store.Text("Stale")); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected stale projection removed, got %v", err)
	}
	if _, err := papers.FirstByField(ctx, "title", g, store.Text("Current")); err != nil {
		t.Errorf("expected current projection kept, got %v", err)
	}
}
