package mongo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fakeCollection 以記憶體模擬 Collection，只支援 Store 用到的 filter 形式 (欄位相等)
type fakeCollection struct {
	mu   sync.Mutex
	docs []bson.M
	// failOn 回傳非 nil 時該次寫入失敗 (op: insert, replace, delete)
	failOn func(op string, doc bson.M) error
}

func toM(v any) bson.M {
	raw, err := bson.Marshal(v)
	if err != nil {
		panic(err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		panic(err)
	}
	return m
}

func matches(doc bson.M, filter any) bool {
	for k, v := range filter.(bson.M) {
		if fmt.Sprint(doc[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

func (c *fakeCollection) indexOf(filter any) int {
	return slices.IndexFunc(c.docs, func(d bson.M) bool { return matches(d, filter) })
}

func (c *fakeCollection) fail(op string, doc bson.M) error {
	if c.failOn == nil {
		return nil
	}
	return c.failOn(op, doc)
}

func (c *fakeCollection) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(filter); i >= 0 {
		return mongo.NewSingleResultFromDocument(c.docs[i], nil, nil)
	}
	return mongo.NewSingleResultFromDocument(bson.M{}, mongo.ErrNoDocuments, nil)
}

func (c *fakeCollection) Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []bson.M
	for _, d := range c.docs {
		if matches(d, filter) {
			matched = append(matched, d)
		}
	}
	for _, o := range opts {
		if sortKeys, ok := o.Sort.(bson.D); ok {
			sortDocs(matched, sortKeys)
		}
	}
	result := make([]any, 0, len(matched))
	for _, d := range matched {
		result = append(result, d)
	}
	return mongo.NewCursorFromDocuments(result, nil, nil)
}

func sortDocs(docs []bson.M, keys bson.D) {
	slices.SortStableFunc(docs, func(a, b bson.M) int {
		for _, k := range keys {
			x, y := sortValue(a[k.Key]), sortValue(b[k.Key])
			if x == y {
				continue
			}
			dir := 1
			if k.Value.(int) < 0 {
				dir = -1
			}
			if x < y {
				return -dir
			}
			return dir
		}
		return 0
	})
}

func sortValue(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case primitive.DateTime:
		return int64(n)
	}
	return 0
}

func (c *fakeCollection) InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc := toM(document)
	if err := c.fail("insert", doc); err != nil {
		return nil, err
	}
	if c.indexOf(bson.M{"_id": doc["_id"]}) >= 0 {
		return nil, errors.New("duplicate key")
	}
	c.docs = append(c.docs, doc)
	return &mongo.InsertOneResult{InsertedID: doc["_id"]}, nil
}

func (c *fakeCollection) ReplaceOne(ctx context.Context, filter any, replacement any, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc := toM(replacement)
	if err := c.fail("replace", doc); err != nil {
		return nil, err
	}
	if i := c.indexOf(filter); i >= 0 {
		c.docs[i] = doc
		return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
	}
	for _, o := range opts {
		if o.Upsert != nil && *o.Upsert {
			c.docs = append(c.docs, doc)
			return &mongo.UpdateResult{UpsertedCount: 1, UpsertedID: doc["_id"]}, nil
		}
	}
	return &mongo.UpdateResult{}, nil
}

func (c *fakeCollection) DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("delete", nil); err != nil {
		return nil, err
	}
	if i := c.indexOf(filter); i >= 0 {
		c.docs = slices.Delete(c.docs, i, i+1)
		return &mongo.DeleteResult{DeletedCount: 1}, nil
	}
	return &mongo.DeleteResult{}, nil
}

// FindOneAndUpdate 只支援 {$inc: {field: n}} 並回傳更新後的文件
func (c *fakeCollection) FindOneAndUpdate(ctx context.Context, filter any, update any, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(filter)
	if i < 0 {
		doc := bson.M{}
		for k, v := range filter.(bson.M) {
			doc[k] = v
		}
		c.docs = append(c.docs, doc)
		i = len(c.docs) - 1
	}
	inc := update.(bson.M)["$inc"].(bson.M)
	for field, delta := range inc {
		current, _ := c.docs[i][field].(int64)
		c.docs[i][field] = current + delta.(int64)
	}
	return mongo.NewSingleResultFromDocument(c.docs[i], nil, nil)
}

func (c *fakeCollection) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

var _ Collection = (*fakeCollection)(nil)
