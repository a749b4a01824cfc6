package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const defaultVectorDimension = 1024

// QdrantConnectionConfig holds Qdrant connection settings.
type QdrantConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API key; implies TLS
	UseTLS          bool
	VectorDimension int
}

func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantRepository keeps claim embeddings for similarity lookups.
type QdrantRepository struct {
	conn            *grpc.ClientConn
	points          pb.PointsClient
	collections     pb.CollectionsClient
	collectionName  string
	vectorDimension int
}

// NewQdrantRepository dials Qdrant over gRPC. Local instances use plaintext;
// Qdrant Cloud uses TLS 1.3 plus an api-key header.
func NewQdrantRepository(cfg *QdrantConnectionConfig) (*QdrantRepository, error) {
	dim := cfg.VectorDimension
	if dim <= 0 {
		dim = defaultVectorDimension
	}

	var opts []grpc.DialOption
	if cfg.UseTLS || cfg.APIKey != "" {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS13})))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantRepository{
		conn:            conn,
		points:          pb.NewPointsClient(conn),
		collections:     pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		vectorDimension: dim,
	}, nil
}

// Close closes the gRPC connection.
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

// EnsureCollection creates the collection with cosine distance when missing
// and checks the vector size when present.
func (r *QdrantRepository) EnsureCollection(ctx context.Context) error {
	info, err := r.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: r.collectionName})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok && size != uint64(r.vectorDimension) {
			return fmt.Errorf("collection %s has vector size %d, expected %d", r.collectionName, size, r.vectorDimension)
		}
		return nil
	}

	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.vectorDimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	for _, field := range []string{"category", "status"} {
		if _, err := r.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
			CollectionName: r.collectionName,
			FieldName:      field,
			FieldType:      pb.FieldType_FieldTypeKeyword.Enum(),
		}); err != nil {
			return fmt.Errorf("failed to index payload field %s: %w", field, err)
		}
	}
	return nil
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	vectors := info.GetConfig().GetParams().GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}
	if size := vectors.GetParams().GetSize(); size > 0 {
		return size, true
	}
	for _, params := range vectors.GetParamsMap().GetMap() {
		if size := params.GetSize(); size > 0 {
			return size, true
		}
	}
	return 0, false
}

// ClaimPayload is stored alongside each claim vector.
type ClaimPayload struct {
	RecordID   string `json:"record_id"`
	Claim      string `json:"claim"`
	Category   string `json:"category"`
	Status     string `json:"status"`
	Confidence int    `json:"confidence"`
	OriginURL  string `json:"origin_url"`
}

// Upsert writes one point. pointID must be a UUID.
func (r *QdrantRepository) Upsert(ctx context.Context, pointID string, vector []float32, payload *ClaimPayload) error {
	uid, err := uuid.Parse(pointID)
	if err != nil {
		return fmt.Errorf("invalid point ID: %w", err)
	}

	point := &pb.PointStruct{
		Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: uid.String()}},
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vector}},
		},
		Payload: map[string]*pb.Value{
			"record_id":  stringValue(payload.RecordID),
			"claim":      stringValue(payload.Claim),
			"category":   stringValue(payload.Category),
			"status":     stringValue(payload.Status),
			"origin_url": stringValue(payload.OriginURL),
			"confidence": {Kind: &pb.Value_IntegerValue{IntegerValue: int64(payload.Confidence)}},
		},
	}

	wait := true
	if _, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collectionName,
		Wait:           &wait,
		Points:         []*pb.PointStruct{point},
	}); err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

// SearchResult is one similarity hit.
type SearchResult struct {
	ID      string        `json:"id"`
	Score   float32       `json:"score"`
	Payload *ClaimPayload `json:"payload"`
}

// SearchFilters narrows a similarity search by payload keyword.
type SearchFilters struct {
	Category string
	Status   string
}

// Search returns the topK nearest claims to vector.
func (r *QdrantRepository) Search(ctx context.Context, vector []float32, topK int, filters *SearchFilters) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: r.collectionName,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		Filter: buildFilter(filters),
	}

	resp, err := r.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, scored := range resp.GetResult() {
		results[i] = SearchResult{
			ID:      scored.GetId().GetUuid(),
			Score:   scored.GetScore(),
			Payload: parsePayload(scored.GetPayload()),
		}
	}
	return results, nil
}

func buildFilter(filters *SearchFilters) *pb.Filter {
	if filters == nil {
		return nil
	}

	var must []*pb.Condition
	for key, value := range map[string]string{"category": filters.Category, "status": filters.Status} {
		if value == "" {
			continue
		}
		must = append(must, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key:   key,
					Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
				},
			},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return &pb.Filter{Must: must}
}

func parsePayload(payload map[string]*pb.Value) *ClaimPayload {
	if payload == nil {
		return nil
	}
	return &ClaimPayload{
		RecordID:   payload["record_id"].GetStringValue(),
		Claim:      payload["claim"].GetStringValue(),
		Category:   payload["category"].GetStringValue(),
		Status:     payload["status"].GetStringValue(),
		OriginURL:  payload["origin_url"].GetStringValue(),
		Confidence: int(payload["confidence"].GetIntegerValue()),
	}
}
