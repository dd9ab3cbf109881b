package vectorcache

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Cache is the sole owner of all Qdrant operations for one collection.
type Cache struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a Cache connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*Cache, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("vectorcache: dial qdrant %s: %w", addr, err)
	}
	return &Cache{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (c *Cache) Close() error {
	return c.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist.
func (c *Cache) EnsureCollection(ctx context.Context, dims int) error {
	list, err := c.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("vectorcache: list collections: %w", err)
	}
	for _, coll := range list.GetCollections() {
		if coll.GetName() == c.collection {
			return nil
		}
	}

	_, err = c.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: c.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorcache: create collection %s: %w", c.collection, err)
	}
	return nil
}

// Upsert stores chunk embeddings into Qdrant.
func (c *Cache) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: r.Embedding}},
			},
			Payload: map[string]*pb.Value{
				"title": {Kind: &pb.Value_StringValue{StringValue: r.Title}},
				"text":  {Kind: &pb.Value_StringValue{StringValue: r.Text}},
			},
		}
	}

	wait := true
	_, err := c.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: c.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("vectorcache: upsert %d points: %w", len(records), err)
	}
	return nil
}

// Search performs k-NN similarity search, backing the test_semantic_search
// verb (SPEC_FULL.md §12).
func (c *Cache) Search(ctx context.Context, embedding []float32, topK int) ([]Result, error) {
	req := &pb.SearchPoints{
		CollectionName: c.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}

	resp, err := c.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vectorcache: search: %w", err)
	}

	results := make([]Result, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		res := Result{ID: r.GetId().GetUuid(), Score: r.GetScore(), Meta: make(map[string]string)}
		for k, val := range r.GetPayload() {
			switch k {
			case "title":
				res.Title = val.GetStringValue()
			case "text":
				res.Text = val.GetStringValue()
			default:
				res.Meta[k] = val.GetStringValue()
			}
		}
		results[i] = res
	}
	return results, nil
}
