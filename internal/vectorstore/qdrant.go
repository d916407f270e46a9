package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// payloadIDField stores the application-level ID when it isn't itself a
// UUID, since Qdrant point IDs must be UUIDs or unsigned integers. Grounded
// on qdrant_vector.go's PAYLOAD_ID_FIELD convention.
const payloadIDField = "_original_id"

// QdrantStore adapts Qdrant's gRPC client to the Store interface.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
	metric     string
}

// NewQdrantStore connects to Qdrant at dsn and ensures the named collection
// exists with the requested vector size/metric (idempotent), grounded on
// qdrant_vector.go's NewQdrantVector/ensureCollection.
func NewQdrantStore(ctx context.Context, dsn, collection string, dimension int, metric string) (*QdrantStore, error) {
	if collection == "" {
		return nil, fmt.Errorf("vectorstore: collection name is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("vectorstore: dimension must be positive")
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: parse dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: invalid port in dsn: %w", err)
	}

	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}

	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: create qdrant client: %w", err)
	}

	qs := &QdrantStore{
		client:     client,
		collection: collection,
		dimension:  dimension,
		metric:     strings.ToLower(strings.TrimSpace(metric)),
	}
	if err := qs.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("vectorstore: ensure collection: %w", err)
	}
	return qs, nil
}

func (q *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}

	var distance qdrant.Distance
	switch q.metric {
	case "l2", "euclidean":
		distance = qdrant.Distance_Euclid
	case "ip", "dot":
		distance = qdrant.Distance_Dot
	case "manhattan":
		distance = qdrant.Distance_Manhattan
	default:
		distance = qdrant.Distance_Cosine
	}

	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: distance,
		}),
	})
}

func (q *QdrantStore) pointID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func (q *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	out := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		uuidStr := q.pointID(p.ID)
		payload := make(map[string]any, len(p.Metadata)+1)
		for k, v := range p.Metadata {
			payload[k] = v
		}
		if uuidStr != p.ID {
			payload[payloadIDField] = p.ID
		}
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		out = append(out, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuidStr),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		})
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         out,
	})
	if err != nil {
		return fmt.Errorf("vectorstore: upsert: %w", err)
	}
	return nil
}

func (q *QdrantStore) Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)

	qf, err := buildFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: build filter: %w", err)
	}

	lim := uint64(limit)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &lim,
		Filter:         qf,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: query: %w", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		id, metadata := decodePayload(hit.Id, hit.Payload)
		results = append(results, SearchResult{ID: id, Score: float64(hit.Score), Metadata: metadata})
	}
	return results, nil
}

func (q *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(q.pointID(id)))
	}
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("vectorstore: delete: %w", err)
	}
	return nil
}

func (q *QdrantStore) Get(ctx context.Context, id string) (*Point, error) {
	uuidStr := q.pointID(id)
	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(uuidStr)},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: get: %w", err)
	}
	if len(points) == 0 {
		return nil, nil
	}
	decodedID, metadata := decodePayload(points[0].Id, points[0].Payload)
	var vec []float32
	if points[0].Vectors != nil {
		if dense := points[0].Vectors.GetVector(); dense != nil {
			vec = dense.GetData()
		}
	}
	return &Point{ID: decodedID, Vector: vec, Metadata: metadata}, nil
}

func (q *QdrantStore) Count(ctx context.Context, filter Filter) (int, error) {
	qf, err := buildFilter(filter)
	if err != nil {
		return 0, fmt.Errorf("vectorstore: build filter: %w", err)
	}
	resp, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Filter:         qf,
	})
	if err != nil {
		return 0, fmt.Errorf("vectorstore: count: %w", err)
	}
	return int(resp), nil
}

func (q *QdrantStore) Close() error { return q.client.Close() }

func decodePayload(id *qdrant.PointId, payload map[string]*qdrant.Value) (string, map[string]any) {
	uuidStr := ""
	if id != nil {
		uuidStr = id.GetUuid()
		if uuidStr == "" {
			uuidStr = id.String()
		}
	}
	metadata := make(map[string]any)
	originalID := ""
	for k, v := range payload {
		if k == payloadIDField {
			originalID = v.GetStringValue()
			continue
		}
		metadata[k] = payloadValueToAny(v)
	}
	resolvedID := originalID
	if resolvedID == "" {
		resolvedID = uuidStr
	}
	return resolvedID, metadata
}

func payloadValueToAny(v *qdrant.Value) any {
	switch {
	case v.GetStringValue() != "":
		return v.GetStringValue()
	case v.GetIntegerValue() != 0:
		return v.GetIntegerValue()
	case v.GetDoubleValue() != 0:
		return v.GetDoubleValue()
	case v.GetBoolValue():
		return v.GetBoolValue()
	default:
		return v.GetStringValue()
	}
}

// buildFilter translates a Filter into a Qdrant Filter, supporting equality,
// $in, $gt/$gte/$lt/$lte per spec §4.7.
func buildFilter(filter Filter) (*qdrant.Filter, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	must := make([]*qdrant.Condition, 0, len(filter))
	for field, cond := range filter {
		switch v := cond.(type) {
		case FilterOp:
			rng := &qdrant.Range{}
			set := false
			if v.Gt != nil {
				rng.Gt = v.Gt
				set = true
			}
			if v.Gte != nil {
				rng.Gte = v.Gte
				set = true
			}
			if v.Lt != nil {
				rng.Lt = v.Lt
				set = true
			}
			if v.Lte != nil {
				rng.Lte = v.Lte
				set = true
			}
			if set {
				must = append(must, qdrant.NewRange(field, rng))
			}
			if len(v.In) > 0 {
				must = append(must, qdrant.NewMatchKeywords(field, v.In...))
			}
		case string:
			must = append(must, qdrant.NewMatch(field, v))
		case []string:
			must = append(must, qdrant.NewMatchKeywords(field, v...))
		default:
			return nil, fmt.Errorf("unsupported filter value for field %q: %T", field, cond)
		}
	}
	return &qdrant.Filter{Must: must}, nil
}
