package mongostore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/chazu/cassette/pkg/store/storetest"
)

func TestStore(t *testing.T) {
	uri := os.Getenv("CASSETTE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CASSETTE_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := New(ctx, Config{URI: uri, Database: "cassette_test", Collection: "c_" + uuid.NewString()})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.coll.Drop(ctx)
		s.Close()
	})
	storetest.Run(t, s)
}
