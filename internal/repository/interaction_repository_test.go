package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mudassar864/yaopets-sub001/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestCreatePresence_NewRowBumpsCounter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInteractionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO interactions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE posts SET likes_count = likes_count \\+ 1").
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := repo.CreatePresence(context.Background(), models.KindLike, "u1", "pet", "p1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePresence_DuplicateIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInteractionRepository(db)

	// Zero affected rows: the like already exists, no counter touch
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO interactions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	created, err := repo.CreatePresence(context.Background(), models.KindLike, "u1", "pet", "p1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePresence_SaveDoesNotTouchCounters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInteractionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO interactions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	created, err := repo.CreatePresence(context.Background(), models.KindSave, "u1", "pet", "p1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePresence_AbsentRowIsNoOp(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInteractionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM interactions").
		WithArgs("like:u1:p1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	deleted, err := repo.DeletePresence(context.Background(), models.KindLike, "u1", "p1")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePresence_DecrementIsClamped(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInteractionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM interactions").
		WithArgs("like:u1:p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE posts SET likes_count = GREATEST\\(likes_count - 1, 0\\)").
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := repo.DeletePresence(context.Background(), models.KindLike, "u1", "p1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateComment_AlwaysInsertsAndBumps(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInteractionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO interactions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE posts SET comments_count = comments_count \\+ 1").
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	comment := &models.Comment{ID: "c1", UserID: "u1", PostID: "p1", Content: "adopt him!"}
	err := repo.CreateComment(context.Background(), comment)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCommentLike_ResolvesOwningPost(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInteractionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT post_id FROM interactions").
		WithArgs("c1", "comment").
		WillReturnRows(sqlmock.NewRows([]string{"post_id"}).AddRow("p7"))
	mock.ExpectExec("INSERT INTO interactions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	created, postID, err := repo.CreateCommentLike(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "p7", postID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCommentLike_CommentMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInteractionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT post_id FROM interactions").
		WithArgs("nope", "comment").
		WillReturnRows(sqlmock.NewRows([]string{"post_id"}))
	mock.ExpectRollback()

	_, _, err := repo.CreateCommentLike(context.Background(), "u1", "nope")
	require.ErrorIs(t, err, ErrCommentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPostStatuses_EntryPerRequestedPost(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInteractionRepository(db)

	rows := sqlmock.NewRows([]string{"post_id", "kind"}).
		AddRow("p1", "like").
		AddRow("p1", "save").
		AddRow("p3", "save")
	mock.ExpectQuery("SELECT post_id, kind").WillReturnRows(rows)

	statuses, err := repo.GetPostStatuses(context.Background(), "u1", []string{"p1", "p2", "p3"})
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	assert.Equal(t, models.PostStatus{PostID: "p1", IsLiked: true, IsSaved: true}, statuses[0])
	assert.Equal(t, models.PostStatus{PostID: "p2"}, statuses[1])
	assert.Equal(t, models.PostStatus{PostID: "p3", IsSaved: true}, statuses[2])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPostStatuses_EmptyInput(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewInteractionRepository(db)

	statuses, err := repo.GetPostStatuses(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.Empty(t, statuses)
}
