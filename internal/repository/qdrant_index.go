package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Named vectors stored per joke point.
const (
	BridgeVectorName  = "bridge"
	ContentVectorName = "content"
)

// QdrantConnectionConfig holds configuration for Qdrant connection
type QdrantConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS          bool   // Explicitly enable TLS without API Key
	VectorDimension int
}

// apiKeyInterceptor adds the API key to every unary call's metadata.
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantJokeIndex mirrors joke vectors into one Qdrant collection with two
// named vectors. Point IDs are the numeric joke IDs.
type QdrantJokeIndex struct {
	conn            *grpc.ClientConn
	pointsClient    pb.PointsClient
	collectClient   pb.CollectionsClient
	collectionName  string
	vectorDimension int
}

var _ VectorIndex = (*QdrantJokeIndex)(nil)

// NewQdrantJokeIndex connects to local Qdrant (insecure) or Qdrant Cloud (TLS + API key).
func NewQdrantJokeIndex(cfg *QdrantConnectionConfig) (*QdrantJokeIndex, error) {
	if cfg.VectorDimension <= 0 {
		return nil, fmt.Errorf("qdrant: vector dimension must be positive")
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var opts []grpc.DialOption
	if cfg.UseTLS || cfg.APIKey != "" {
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS13})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantJokeIndex{
		conn:            conn,
		pointsClient:    pb.NewPointsClient(conn),
		collectClient:   pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		vectorDimension: cfg.VectorDimension,
	}, nil
}

func (q *QdrantJokeIndex) Close() error {
	return q.conn.Close()
}

// EnsureCollection creates the collection with bridge and content vectors,
// or checks the sizes of an existing one.
func (q *QdrantJokeIndex) EnsureCollection(ctx context.Context) error {
	info, err := q.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: q.collectionName,
	})
	if err == nil {
		return checkNamedVectorSizes(info.GetResult(), uint64(q.vectorDimension))
	}

	params := func() *pb.VectorParams {
		return &pb.VectorParams{Size: uint64(q.vectorDimension), Distance: pb.Distance_Cosine}
	}
	_, err = q.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_ParamsMap{
				ParamsMap: &pb.VectorParamsMap{
					Map: map[string]*pb.VectorParams{
						BridgeVectorName:  params(),
						ContentVectorName: params(),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", q.collectionName, err)
	}
	return nil
}

func checkNamedVectorSizes(info *pb.CollectionInfo, want uint64) error {
	paramsMap := info.GetConfig().GetParams().GetVectorsConfig().GetParamsMap()
	if paramsMap == nil {
		return fmt.Errorf("collection has no named vectors, expected %q and %q", BridgeVectorName, ContentVectorName)
	}
	for _, name := range []string{BridgeVectorName, ContentVectorName} {
		params, ok := paramsMap.GetMap()[name]
		if !ok {
			return fmt.Errorf("collection is missing named vector %q", name)
		}
		if params.GetSize() != want {
			return fmt.Errorf("named vector %q has size %d, expected %d", name, params.GetSize(), want)
		}
	}
	return nil
}

func pointID(id int64) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: uint64(id)}}
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func tagsToValue(tags []string) *pb.Value {
	values := make([]*pb.Value, len(tags))
	for i, tag := range tags {
		values[i] = stringValue(tag)
	}
	return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: values}}}
}

// Index upserts the joke's vectors. A joke with no vectors is removed instead,
// since an upsert replaces every named vector of the point.
func (q *QdrantJokeIndex) Index(ctx context.Context, joke *domain.JokeRecord) error {
	vectors := make(map[string]*pb.Vector, 2)
	if joke.HasBridgeEmbedding() {
		vectors[BridgeVectorName] = &pb.Vector{Data: joke.BridgeEmbedding.Slice()}
	}
	if joke.HasContentEmbedding() {
		vectors[ContentVectorName] = &pb.Vector{Data: joke.ContentEmbedding.Slice()}
	}
	if len(vectors) == 0 {
		return q.Remove(ctx, joke.ID)
	}

	bridge := ""
	if joke.BridgeContent != nil {
		bridge = *joke.BridgeContent
	}

	wait := true
	_, err := q.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collectionName,
		Wait:           &wait,
		Points: []*pb.PointStruct{
			{
				Id: pointID(joke.ID),
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vectors{
						Vectors: &pb.NamedVectors{Vectors: vectors},
					},
				},
				Payload: map[string]*pb.Value{
					"source_id":       stringValue(joke.SourceID),
					"searchable_text": stringValue(joke.SearchableText),
					"bridge_content":  stringValue(bridge),
					"tags":            tagsToValue(joke.Tags),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert joke %d: %w", joke.ID, err)
	}
	return nil
}

func (q *QdrantJokeIndex) MatchBridges(ctx context.Context, query []float32, count int) ([]domain.JokeMatch, error) {
	return q.search(ctx, BridgeVectorName, query, nil, count)
}

func (q *QdrantJokeIndex) MatchContent(ctx context.Context, query []float32, threshold float32, count int) ([]domain.JokeMatch, error) {
	return q.search(ctx, ContentVectorName, query, &threshold, count)
}

func (q *QdrantJokeIndex) search(ctx context.Context, vectorName string, query []float32, threshold *float32, count int) ([]domain.JokeMatch, error) {
	resp, err := q.pointsClient.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collectionName,
		Vector:         query,
		VectorName:     &vectorName,
		Limit:          uint64(count),
		ScoreThreshold: threshold,
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s vectors: %w", vectorName, err)
	}

	// Qdrant keeps scores equal to the threshold; match_jokes does not.
	matches := make([]domain.JokeMatch, 0, len(resp.GetResult()))
	for _, scored := range resp.GetResult() {
		if threshold != nil && scored.GetScore() <= *threshold {
			continue
		}
		matches = append(matches, parseScoredPoint(scored))
	}
	return matches, nil
}

func parseScoredPoint(scored *pb.ScoredPoint) domain.JokeMatch {
	payload := scored.GetPayload()
	match := domain.JokeMatch{
		ID:         int64(scored.GetId().GetNum()),
		Similarity: float64(scored.GetScore()),
	}
	if v, ok := payload["source_id"]; ok {
		match.SourceID = v.GetStringValue()
	}
	if v, ok := payload["searchable_text"]; ok {
		match.SearchableText = v.GetStringValue()
	}
	if v, ok := payload["bridge_content"]; ok {
		match.BridgeContent = v.GetStringValue()
	}
	if v, ok := payload["tags"]; ok {
		for _, item := range v.GetListValue().GetValues() {
			match.Tags = append(match.Tags, item.GetStringValue())
		}
	}
	return match
}

// Remove deletes the joke's point.
func (q *QdrantJokeIndex) Remove(ctx context.Context, id int64) error {
	wait := true
	_, err := q.pointsClient.Delete(ctx, &pb.DeletePoints{
		CollectionName: q.collectionName,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: []*pb.PointId{pointID(id)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete point %d: %w", id, err)
	}
	return nil
}
