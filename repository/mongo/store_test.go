package mongo

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"movierental/repository"
	"movierental/repository/storetest"
)

func TestStoreConformance(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, uri, "movierental_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.db.Drop(context.Background())
		_ = s.Close()
	})

	storetest.Run(t, func(t *testing.T) repository.Store {
		for _, col := range []string{colGenres, colMovies, colCustomers, colUsers, colRentals} {
			_, err := s.db.Collection(col).DeleteMany(ctx, bson.M{})
			require.NoError(t, err)
		}
		return s
	})
}
