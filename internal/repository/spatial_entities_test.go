package repository_test

import (
	"testing"

	"github.com/bruadam/hvx-sub006/internal/domain"
	"github.com/bruadam/hvx-sub006/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func TestListByPortfolio(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"entity_id", "entity_name", "entity_type", "parent_ids", "child_ids", "attributes"}).
		AddRow("portfolio-1", "HQ Portfolio", "portfolio", `[]`, `["building-1"]`, `{}`).
		AddRow("building-1", "Main Office", "building", `["portfolio-1"]`, `["room-1"]`,
			`{"country":"DK","building_type":"office"}`).
		AddRow("room-1", "Meeting Room", "room", `["building-1"]`, `[]`,
			`{"room_type":"meeting_room","area_m2":42.5}`)

	mock.ExpectQuery("SELECT(.|\n)+FROM spatial_entities").
		WithArgs("portfolio-1").
		WillReturnRows(rows)

	repo := repository.NewSpatialEntityRepository(db, zap.NewNop())
	entities, err := repo.ListByPortfolio("portfolio-1")
	require.NoError(t, err)
	require.Len(t, entities, 3)

	require.Equal(t, domain.EntityPortfolio, entities[0].Type)
	require.Equal(t, []string{"building-1"}, entities[0].ChildIDs)

	building := entities[1]
	require.Equal(t, "DK", building.Attributes.Country)
	require.Equal(t, "office", building.Attributes.BuildingType)

	room := entities[2]
	require.Equal(t, "meeting_room", room.Attributes.RoomType)
	require.NotNil(t, room.Attributes.AreaM2)
	require.Equal(t, 42.5, *room.Attributes.AreaM2)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByPortfolio_BadJSONB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"entity_id", "entity_name", "entity_type", "parent_ids", "child_ids", "attributes"}).
		AddRow("room-1", "Room", "room", `not-json`, `[]`, `{}`)
	mock.ExpectQuery("SELECT(.|\n)+FROM spatial_entities").
		WithArgs("portfolio-1").
		WillReturnRows(rows)

	repo := repository.NewSpatialEntityRepository(db, zap.NewNop())
	_, err = repo.ListByPortfolio("portfolio-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "parent_ids")
}

func TestLoadHierarchy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"entity_id", "entity_name", "entity_type", "parent_ids", "child_ids", "attributes"}).
		AddRow("portfolio-1", "HQ", "portfolio", `[]`, `["building-1"]`, `{}`).
		AddRow("building-1", "Main", "building", `["portfolio-1"]`, `[]`, `{}`)
	mock.ExpectQuery("SELECT(.|\n)+FROM spatial_entities").
		WithArgs("portfolio-1").
		WillReturnRows(rows)

	repo := repository.NewSpatialEntityRepository(db, zap.NewNop())
	h, err := repo.LoadHierarchy("portfolio-1")
	require.NoError(t, err)
	require.Equal(t, 2, h.Size())
	require.Equal(t, []string{"building-1"}, h.Leaves())
}

func TestLoadHierarchy_EmptyPortfolio(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT(.|\n)+FROM spatial_entities").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"entity_id", "entity_name", "entity_type", "parent_ids", "child_ids", "attributes"}))

	repo := repository.NewSpatialEntityRepository(db, zap.NewNop())
	_, err = repo.LoadHierarchy("missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "portfolio not found")
}
