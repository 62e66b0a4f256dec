package repository

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/chirp/models"
)

func dryRun(t *testing.T, dialector gorm.Dialector) *PostRepository {
	t.Helper()
	db, err := gorm.Open(dialector, &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)
	return NewPostRepository(db)
}

// requireLimitedSelect accepts the limit either inlined or bound as a parameter.
func requireLimitedSelect(t *testing.T, stmt *gorm.Statement, prefix string, limit int) {
	t.Helper()
	sql := stmt.SQL.String()
	require.True(t, strings.HasPrefix(sql, prefix), "unexpected sql %q", sql)
	if strings.HasSuffix(sql, strconv.Itoa(limit)) {
		return
	}
	require.Contains(t, stmt.Vars, limit)
}

func mysqlDryRun(t *testing.T) *PostRepository {
	return dryRun(t, mysql.New(mysql.Config{
		DSN:                       "chirp:chirp@tcp(127.0.0.1:3306)/chirp?parseTime=True",
		SkipInitializeWithVersion: true,
	}))
}

func TestListRecentSQL(t *testing.T) {
	repo := mysqlDryRun(t)
	var posts []models.Post
	stmt := repo.newestFirst(context.Background()).Limit(100).Find(&posts).Statement
	requireLimitedSelect(t, stmt, "SELECT * FROM `post` ORDER BY `createdAt` DESC LIMIT ", 100)
}

func TestListRecentSQL_Postgres(t *testing.T) {
	repo := dryRun(t, postgres.New(postgres.Config{DSN: "host=127.0.0.1 user=chirp dbname=chirp sslmode=disable"}))
	var posts []models.Post
	stmt := repo.newestFirst(context.Background()).Limit(100).Find(&posts).Statement
	requireLimitedSelect(t, stmt, `SELECT * FROM "post" ORDER BY "createdAt" DESC LIMIT `, 100)
}

func TestGetByIDSQL(t *testing.T) {
	repo := mysqlDryRun(t)
	var post models.Post
	stmt := repo.db.Where("id = ?", "p1").Take(&post).Statement
	require.Contains(t, stmt.SQL.String(), "SELECT * FROM `post` WHERE id = ?")
	require.NotEmpty(t, stmt.Vars)
	require.Equal(t, "p1", stmt.Vars[0])
}

func TestCreateAssignsIDAndTimestamp(t *testing.T) {
	repo := mysqlDryRun(t)
	post := &models.Post{Content: "hi", AuthorID: "user_1"}
	require.NoError(t, repo.Create(context.Background(), post))
	require.NotEmpty(t, post.ID)
	require.False(t, post.CreatedAt.IsZero())

	other := &models.Post{Content: "bye", AuthorID: "user_1"}
	require.NoError(t, repo.Create(context.Background(), other))
	require.NotEqual(t, post.ID, other.ID)
}
