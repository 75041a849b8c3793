package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/pgvector/pgvector-go"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

// fakePoints records the requests of the PointsClient calls the index makes.
type fakePoints struct {
	pb.PointsClient
	upserts  []*pb.UpsertPoints
	deletes  []*pb.DeletePoints
	searches []*pb.SearchPoints
	hits     []*pb.ScoredPoint
	err      error
}

func (f *fakePoints) Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	f.upserts = append(f.upserts, in)
	return &pb.PointsOperationResponse{}, f.err
}

func (f *fakePoints) Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	f.deletes = append(f.deletes, in)
	return &pb.PointsOperationResponse{}, f.err
}

func (f *fakePoints) Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error) {
	f.searches = append(f.searches, in)
	if f.err != nil {
		return nil, f.err
	}
	return &pb.SearchResponse{Result: f.hits}, nil
}

type fakeCollections struct {
	pb.CollectionsClient
	info    *pb.CollectionInfo
	getErr  error
	created []*pb.CreateCollection
}

func (f *fakeCollections) Get(ctx context.Context, in *pb.GetCollectionInfoRequest, opts ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &pb.GetCollectionInfoResponse{Result: f.info}, nil
}

func (f *fakeCollections) Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	f.created = append(f.created, in)
	return &pb.CollectionOperationResponse{}, nil
}

func newTestQdrantIndex(points *fakePoints, collections *fakeCollections) *QdrantJokeIndex {
	return &QdrantJokeIndex{
		pointsClient:    points,
		collectClient:   collections,
		collectionName:  "jokes",
		vectorDimension: 3,
	}
}

func collectionInfo(sizes map[string]uint64) *pb.CollectionInfo {
	params := make(map[string]*pb.VectorParams, len(sizes))
	for name, size := range sizes {
		params[name] = &pb.VectorParams{Size: size, Distance: pb.Distance_Cosine}
	}
	return &pb.CollectionInfo{
		Config: &pb.CollectionConfig{
			Params: &pb.CollectionParams{
				VectorsConfig: &pb.VectorsConfig{
					Config: &pb.VectorsConfig_ParamsMap{
						ParamsMap: &pb.VectorParamsMap{Map: params},
					},
				},
			},
		},
	}
}

func TestCheckNamedVectorSizes(t *testing.T) {
	tests := []struct {
		name    string
		info    *pb.CollectionInfo
		wantErr bool
	}{
		{name: "matching", info: collectionInfo(map[string]uint64{BridgeVectorName: 3, ContentVectorName: 3})},
		{name: "missing content", info: collectionInfo(map[string]uint64{BridgeVectorName: 3}), wantErr: true},
		{name: "wrong size", info: collectionInfo(map[string]uint64{BridgeVectorName: 3, ContentVectorName: 1536}), wantErr: true},
		{name: "unnamed vectors", info: &pb.CollectionInfo{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkNamedVectorSizes(tt.info, 3)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkNamedVectorSizes() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQdrantJokeIndex_EnsureCollection(t *testing.T) {
	collections := &fakeCollections{getErr: errors.New("not found")}
	q := newTestQdrantIndex(&fakePoints{}, collections)

	if err := q.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	if len(collections.created) != 1 {
		t.Fatalf("Create calls = %d, want 1", len(collections.created))
	}
	got := collections.created[0].GetVectorsConfig().GetParamsMap().GetMap()
	for _, name := range []string{BridgeVectorName, ContentVectorName} {
		if got[name].GetSize() != 3 || got[name].GetDistance() != pb.Distance_Cosine {
			t.Errorf("vector %q = %v, want size 3 cosine", name, got[name])
		}
	}
}

func TestParseScoredPoint(t *testing.T) {
	scored := &pb.ScoredPoint{
		Id:    pointID(42),
		Score: 0.5,
		Payload: map[string]*pb.Value{
			"source_id":       stringValue("vid-1"),
			"searchable_text": stringValue("My GPS just sighs."),
			"bridge_content":  stringValue("tired machines"),
			"tags":            tagsToValue([]string{"tech", "driving"}),
		},
	}

	got := parseScoredPoint(scored)
	if got.ID != 42 || got.Similarity != 0.5 {
		t.Errorf("ID/Similarity = %d/%v, want 42/0.5", got.ID, got.Similarity)
	}
	if got.SourceID != "vid-1" || got.SearchableText != "My GPS just sighs." || got.BridgeContent != "tired machines" {
		t.Errorf("payload fields = %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[1] != "driving" {
		t.Errorf("Tags = %v, want [tech driving]", got.Tags)
	}
}

func TestQdrantJokeIndex_Index(t *testing.T) {
	bridge := "tired machines"
	vec := pgvector.NewVector([]float32{1, 0, 0})
	tests := []struct {
		name        string
		joke        *domain.JokeRecord
		wantUpserts int
		wantDeletes int
		wantVectors []string
	}{
		{
			name:        "both vectors",
			joke:        &domain.JokeRecord{ID: 1, SearchableText: "a", BridgeContent: &bridge, BridgeEmbedding: &vec, ContentEmbedding: &vec},
			wantUpserts: 1,
			wantVectors: []string{BridgeVectorName, ContentVectorName},
		},
		{
			name:        "content only",
			joke:        &domain.JokeRecord{ID: 2, SearchableText: "b", ContentEmbedding: &vec},
			wantUpserts: 1,
			wantVectors: []string{ContentVectorName},
		},
		{
			name:        "no vectors removes the point",
			joke:        &domain.JokeRecord{ID: 3, SearchableText: "c"},
			wantDeletes: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := &fakePoints{}
			q := newTestQdrantIndex(points, &fakeCollections{})

			if err := q.Index(context.Background(), tt.joke); err != nil {
				t.Fatalf("Index() error = %v", err)
			}
			if len(points.upserts) != tt.wantUpserts || len(points.deletes) != tt.wantDeletes {
				t.Fatalf("upserts/deletes = %d/%d, want %d/%d", len(points.upserts), len(points.deletes), tt.wantUpserts, tt.wantDeletes)
			}
			if tt.wantDeletes > 0 {
				ids := points.deletes[0].GetPoints().GetPoints().GetIds()
				if len(ids) != 1 || ids[0].GetNum() != uint64(tt.joke.ID) {
					t.Errorf("deleted ids = %v, want [%d]", ids, tt.joke.ID)
				}
				return
			}
			point := points.upserts[0].GetPoints()[0]
			vectors := point.GetVectors().GetVectors().GetVectors()
			if len(vectors) != len(tt.wantVectors) {
				t.Errorf("named vectors = %d, want %d", len(vectors), len(tt.wantVectors))
			}
			for _, name := range tt.wantVectors {
				if _, ok := vectors[name]; !ok {
					t.Errorf("missing named vector %q", name)
				}
			}
			if got := point.GetPayload()["searchable_text"].GetStringValue(); got != tt.joke.SearchableText {
				t.Errorf("searchable_text payload = %q, want %q", got, tt.joke.SearchableText)
			}
		})
	}
}

func TestQdrantJokeIndex_Search(t *testing.T) {
	hits := []*pb.ScoredPoint{
		{Id: pointID(1), Score: 0.9},
		{Id: pointID(2), Score: 0.3},
		{Id: pointID(3), Score: 0.1},
	}

	t.Run("bridges have no threshold", func(t *testing.T) {
		points := &fakePoints{hits: hits}
		q := newTestQdrantIndex(points, &fakeCollections{})

		got, err := q.MatchBridges(context.Background(), []float32{1, 0, 0}, 5)
		if err != nil {
			t.Fatalf("MatchBridges() error = %v", err)
		}
		if len(got) != 3 {
			t.Errorf("matches = %d, want 3", len(got))
		}
		req := points.searches[0]
		if req.GetVectorName() != BridgeVectorName || req.ScoreThreshold != nil || req.GetLimit() != 5 {
			t.Errorf("request = vector %q threshold %v limit %d", req.GetVectorName(), req.ScoreThreshold, req.GetLimit())
		}
	})

	t.Run("content drops scores at the threshold", func(t *testing.T) {
		points := &fakePoints{hits: hits}
		q := newTestQdrantIndex(points, &fakeCollections{})

		got, err := q.MatchContent(context.Background(), []float32{1, 0, 0}, 0.3, 5)
		if err != nil {
			t.Fatalf("MatchContent() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != 1 {
			t.Errorf("matches = %+v, want only id 1", got)
		}
		req := points.searches[0]
		if req.GetVectorName() != ContentVectorName || req.GetScoreThreshold() != 0.3 {
			t.Errorf("request = vector %q threshold %v", req.GetVectorName(), req.GetScoreThreshold())
		}
	})

	t.Run("error", func(t *testing.T) {
		q := newTestQdrantIndex(&fakePoints{err: errors.New("unavailable")}, &fakeCollections{})
		if _, err := q.MatchContent(context.Background(), []float32{1}, 0.3, 5); err == nil {
			t.Error("MatchContent() error = nil, want error")
		}
	})
}
