package dberr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestFromMongo_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
		is   error
	}{
		{
			name: "duplicate key write error",
			err:  mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}},
			want: KindConflict,
			is:   ErrConflict,
		},
		{
			name: "duplicate key command error",
			err:  mongo.CommandError{Code: 11000, Message: "E11000"},
			want: KindConflict,
			is:   ErrConflict,
		},
		{
			name: "no documents",
			err:  mongo.ErrNoDocuments,
			want: KindNotFound,
			is:   ErrNotFound,
		},
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: KindTransient,
			is:   ErrTransient,
		},
		{
			name: "network",
			err:  mongo.CommandError{Code: 6, Labels: []string{"NetworkError"}},
			want: KindTransient,
			is:   ErrTransient,
		},
		{
			name: "other write error",
			err:  mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 121, Message: "Document failed validation"}}},
			want: KindTransient,
			is:   ErrTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromMongo("op", "key", tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
			assert.ErrorIs(t, err, tt.is)

			var classified *Error
			require.ErrorAs(t, err, &classified)
			assert.Equal(t, "op", classified.Op)
			assert.Equal(t, "key", classified.Key)
			assert.NotNil(t, classified.Unwrap())
		})
	}
}

func TestFromMongo_UnwrapsCause(t *testing.T) {
	assert.ErrorIs(t, FromMongo("GetUser", "x@y.com", context.DeadlineExceeded), context.DeadlineExceeded)
	assert.ErrorIs(t, FromMongo("GetUser", "x@y.com", mongo.ErrNoDocuments), mongo.ErrNoDocuments)
}

func TestFromMongo_Nil(t *testing.T) {
	assert.NoError(t, FromMongo("op", "key", nil))
}

func TestFromMongo_KeepsKind(t *testing.T) {
	inner := Validation("CreateSession", "u1", "jwt is required")
	outer := FromMongo("DeleteUser", "x@y.com", inner)

	assert.Equal(t, KindValidation, KindOf(outer))
	assert.ErrorIs(t, outer, ErrValidation)
	assert.NotErrorIs(t, outer, ErrTransient)
	assert.Contains(t, outer.Error(), "DeleteUser x@y.com")
}

func TestFromMongo_RetagSameKey(t *testing.T) {
	inner := FromMongo("DeleteSessions", "x@y.com", errors.New("bad value"))
	outer := FromMongo("DeleteUser", "x@y.com", inner)

	assert.Equal(t, "DeleteUser x@y.com: transient database error: bad value", outer.Error())
	assert.ErrorIs(t, outer, ErrTransient)

	var classified *Error
	require.ErrorAs(t, outer, &classified)
	assert.Equal(t, "DeleteUser", classified.Op)
}

func TestError_Message(t *testing.T) {
	err := New(KindConflict, "AddUser", "x@y.com", errors.New("E11000"))
	assert.Equal(t, "AddUser x@y.com: conflict: E11000", err.Error())

	assert.Equal(t, "GetUser: not found", NotFound("GetUser", "").Error())
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, KindTransient, KindOf(errors.New("boom")))
}
