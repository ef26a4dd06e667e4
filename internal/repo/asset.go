package repo

import (
	"database/sql"
	"errors"

	"github.com/devplane-io/devplane/internal/models"
	"github.com/lib/pq"
)

// ErrAssetNotFound is returned when an asset id does not exist.
var ErrAssetNotFound = errors.New("asset not found")

// AssetRepo persists catalog assets.
type AssetRepo struct {
	DB *sql.DB
}

func NewAssetRepo(db *sql.DB) *AssetRepo {
	return &AssetRepo{DB: db}
}

const assetCols = `id, name, type, location, owner, description, COALESCE(tags, '{}'), freshness_sla_hours, last_validated, created_at`

func scanAsset(row interface{ Scan(...any) error }) (models.Asset, error) {
	var a models.Asset
	var tags pq.StringArray
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Location, &a.Owner, &a.Description,
		&tags, &a.FreshnessSLAHours, &a.LastValidated, &a.CreatedAt)
	a.Tags = []string(tags)
	return a, err
}

func (r *AssetRepo) Create(a models.Asset) (models.Asset, error) {
	row := r.DB.QueryRow(
		`INSERT INTO assets (name, type, location, owner, description, tags, freshness_sla_hours)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+assetCols,
		a.Name, a.Type, a.Location, a.Owner, a.Description, pq.Array(a.Tags), a.FreshnessSLAHours,
	)
	return scanAsset(row)
}

func (r *AssetRepo) GetByID(id int) (models.Asset, error) {
	row := r.DB.QueryRow(`SELECT `+assetCols+` FROM assets WHERE id = $1`, id)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return a, ErrAssetNotFound
	}
	return a, err
}

func (r *AssetRepo) UpdateByID(id int, a models.Asset) (models.Asset, error) {
	row := r.DB.QueryRow(
		`UPDATE assets
		 SET type = $1, location = $2, owner = $3, description = $4, tags = $5, freshness_sla_hours = $6
		 WHERE id = $7
		 RETURNING `+assetCols,
		a.Type, a.Location, a.Owner, a.Description, pq.Array(a.Tags), a.FreshnessSLAHours, id,
	)
	out, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return out, ErrAssetNotFound
	}
	return out, err
}

func (r *AssetRepo) DeleteByID(id int) error {
	res, err := r.DB.Exec(`DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// Heartbeat marks the asset as validated now and returns the updated row.
func (r *AssetRepo) Heartbeat(id int) (models.Asset, error) {
	row := r.DB.QueryRow(
		`UPDATE assets SET last_validated = now() WHERE id = $1 RETURNING `+assetCols, id)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return a, ErrAssetNotFound
	}
	return a, err
}

func (r *AssetRepo) ListPaginated(limit, offset int) ([]models.Asset, error) {
	rows, err := r.DB.Query(
		`SELECT `+assetCols+` FROM assets ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssets(rows)
}

// SearchPaginated matches name, description, or any tag, case-insensitively.
func (r *AssetRepo) SearchPaginated(query string, limit, offset int) ([]models.Asset, error) {
	rows, err := r.DB.Query(
		`SELECT `+assetCols+` FROM assets
		 WHERE name ILIKE $1 OR description ILIKE $1 OR EXISTS (
		     SELECT 1 FROM unnest(tags) t WHERE t ILIKE $1
		 )
		 ORDER BY id LIMIT $2 OFFSET $3`,
		"%"+query+"%", limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssets(rows)
}

// ListStale returns assets whose freshness SLA has lapsed. Assets with a zero
// SLA or no validation yet but no SLA are excluded; assets with an SLA and no
// validation at all count as stale.
func (r *AssetRepo) ListStale(limit, offset int) ([]models.Asset, error) {
	rows, err := r.DB.Query(
		`SELECT `+assetCols+` FROM assets
		 WHERE freshness_sla_hours > 0
		   AND (last_validated IS NULL
		        OR last_validated < now() - (freshness_sla_hours || ' hours')::interval)
		 ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssets(rows)
}

func collectAssets(rows *sql.Rows) ([]models.Asset, error) {
	var assets []models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
