package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
	"github.com/a3tai/mcp-exam-reader/internal/exam/reconcile"
)

const artifactNS = "exams.artifacts"

var chemistry2023 = exam.FileSet{Key: "2023", Subject: "chemistry"}

func storedDoc(id, artifact string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "subject", Value: "chemistry"},
		{Key: "key", Value: "2023"},
		{Key: "questions", Value: 1},
		{Key: "artifact", Value: artifact},
	}
}

func okReply() bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1})
}

// commandTrail lists the command names and target ids the store sent.
func commandTrail(mt *mtest.T) []string {
	var trail []string
	for _, ev := range mt.GetAllStartedEvents() {
		var id string
		switch ev.CommandName {
		case "update":
			id, _ = ev.Command.Lookup("updates", "0", "q", "_id").StringValueOK()
		case "find":
			id, _ = ev.Command.Lookup("filter", "_id").StringValueOK()
		case "delete":
			id, _ = ev.Command.Lookup("deletes", "0", "q", "_id").StringValueOK()
		}
		trail = append(trail, ev.CommandName+" "+id)
	}
	return trail
}

func TestMongoStore_Save(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("stages, verifies and promotes", func(mt *mtest.T) {
		out := validArtifact()
		data, err := reconcile.RoundTrip(out)
		require.NoError(mt, err)

		mt.AddMockResponses(
			okReply(),
			mtest.CreateCursorResponse(0, artifactNS, mtest.FirstBatch, storedDoc("chemistry/2023.staging", string(data))),
			okReply(),
			okReply(),
		)

		store := NewMongoStore(mt.Client, "exams")
		location, err := store.Save(context.Background(), chemistry2023, out)
		require.NoError(mt, err)
		assert.Equal(mt, "mongodb://exams/artifacts/chemistry/2023", location)
		assert.Equal(mt, []string{
			"update chemistry/2023.staging",
			"find chemistry/2023.staging",
			"update chemistry/2023",
			"delete chemistry/2023.staging",
		}, commandTrail(mt))
	})

	mt.Run("reload failure keeps previous artifact", func(mt *mtest.T) {
		mt.AddMockResponses(
			okReply(),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "boom"}),
			okReply(),
		)

		store := NewMongoStore(mt.Client, "exams")
		_, err := store.Save(context.Background(), chemistry2023, validArtifact())
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to reload artifact")
		assert.Equal(mt, []string{
			"update chemistry/2023.staging",
			"find chemistry/2023.staging",
			"delete chemistry/2023.staging",
		}, commandTrail(mt))
	})

	mt.Run("corrupted stored artifact", func(mt *mtest.T) {
		mt.AddMockResponses(
			okReply(),
			mtest.CreateCursorResponse(0, artifactNS, mtest.FirstBatch,
				storedDoc("chemistry/2023.staging", `{"subjects":{"chemistry":{"2023":[{"id":1,"question":"Symbol for iron"}]}}}`)),
			okReply(),
		)

		store := NewMongoStore(mt.Client, "exams")
		_, err := store.Save(context.Background(), chemistry2023, validArtifact())
		require.Error(mt, err)
		assert.True(mt, errors.Is(err, exam.ErrRoundtripMismatch), "got %v", err)
		assert.Equal(mt, []string{
			"update chemistry/2023.staging",
			"find chemistry/2023.staging",
			"delete chemistry/2023.staging",
		}, commandTrail(mt))
	})

	mt.Run("invalid artifact is never written", func(mt *mtest.T) {
		out := validArtifact()
		out.Subjects["chemistry"]["2023"][0].Answer = "E"

		store := NewMongoStore(mt.Client, "exams")
		_, err := store.Save(context.Background(), chemistry2023, out)
		require.Error(mt, err)
		assert.Empty(mt, commandTrail(mt))
	})
}
