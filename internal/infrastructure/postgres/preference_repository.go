package postgres

import (
	"context"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/appserv/internal/domain/entity"
	"github.com/oksasatya/appserv/pkg/apperr"
)

// sinceAll is the lower bound that matches every row.
const sinceAll int64 = math.MinInt64

// NewRecently inserts plays in chunks. A repeated (station, start_time) is skipped.
func (r *Repository) NewRecently(ctx context.Context, userID int64, items []entity.Recently) (int, error) {
	return r.inChunks(ctx, "new recently", len(items), func(tx pgx.Tx, i int) (int64, error) {
		it := items[i]
		tag, err := tx.Exec(ctx, `
			INSERT INTO recently (user_id, stationuuid, start_time, end_time)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, stationuuid, start_time) DO NOTHING`,
			userID, it.StationUUID, it.StartTime, it.EndTime)
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	})
}

// ModifyRecently closes a play. A missing play is ignored.
func (r *Repository) ModifyRecently(ctx context.Context, userID int64, item entity.Recently) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE recently SET end_time = $1
		WHERE user_id = $2 AND stationuuid = $3 AND start_time = $4`,
		item.EndTime, userID, item.StationUUID, item.StartTime)
	return dbErr("modify recently", err)
}

func (r *Repository) ClearRecently(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM recently WHERE user_id = $1`, userID)
	return dbErr("clear recently", err)
}

func (r *Repository) QueryRecently(ctx context.Context, userID int64) ([]entity.Recently, error) {
	return r.queryRecently(ctx, userID, sinceAll)
}

func (r *Repository) queryRecently(ctx context.Context, userID, since int64) ([]entity.Recently, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, stationuuid, start_time, end_time
		FROM recently
		WHERE user_id = $1 AND start_time > $2
		ORDER BY start_time DESC`, userID, since)
	if err != nil {
		return nil, dbErr("query recently", err)
	}
	defer rows.Close()

	out := []entity.Recently{}
	for rows.Next() {
		var it entity.Recently
		if err := rows.Scan(&it.ID, &it.UserID, &it.StationUUID, &it.StartTime, &it.EndTime); err != nil {
			return nil, dbErr("query recently", err)
		}
		out = append(out, it)
	}
	return out, dbErr("query recently", rows.Err())
}

// NewGroups inserts groups in chunks. Duplicate names are skipped. A default group
// only replaces the current default when its create_time is strictly later.
func (r *Repository) NewGroups(ctx context.Context, userID int64, groups []entity.FavGroup) (int, error) {
	return r.inChunks(ctx, "new groups", len(groups), func(tx pgx.Tx, i int) (int64, error) {
		g := groups[i]
		if g.CreateTime == 0 {
			g.CreateTime = r.unix()
		}
		if g.IsDef {
			return replaceDefaultGroup(ctx, tx, userID, g)
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO fav_groups (user_id, create_time, name, description, is_def)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, name) DO NOTHING`,
			userID, g.CreateTime, g.Name, g.Desc, false)
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	})
}

// replaceDefaultGroup arbitrates an incoming default group against the current one.
// The later create_time wins. A losing or name-clashing group leaves the current
// default untouched. The replaced default's favorites move to the new default.
func replaceDefaultGroup(ctx context.Context, tx pgx.Tx, userID int64, g entity.FavGroup) (int64, error) {
	var (
		defID, defTime int64
		hasDef         = true
	)
	err := tx.QueryRow(ctx, `
		SELECT id, create_time FROM fav_groups
		WHERE user_id = $1 AND is_def
		FOR UPDATE`, userID).Scan(&defID, &defTime)
	switch {
	case isNoRows(err):
		hasDef = false
	case err != nil:
		return 0, err
	case defTime >= g.CreateTime:
		return 0, nil
	}

	var sameName int64
	err = tx.QueryRow(ctx, `SELECT id FROM fav_groups WHERE user_id = $1 AND name = $2`, userID, g.Name).Scan(&sameName)
	switch {
	case err == nil && hasDef && sameName == defID:
		_, err := tx.Exec(ctx, `UPDATE fav_groups SET create_time = $1, description = $2 WHERE id = $3`,
			g.CreateTime, g.Desc, defID)
		if err != nil {
			return 0, err
		}
		return 1, nil
	case err == nil:
		return 0, nil
	case !isNoRows(err):
		return 0, err
	}

	if hasDef {
		if _, err := tx.Exec(ctx, `UPDATE fav_groups SET is_def = FALSE WHERE id = $1`, defID); err != nil {
			return 0, err
		}
	}
	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO fav_groups (user_id, create_time, name, description, is_def)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id`, userID, g.CreateTime, g.Name, g.Desc).Scan(&id)
	if err != nil {
		return 0, err
	}
	if !hasDef {
		return 1, nil
	}
	if _, err := tx.Exec(ctx, `UPDATE favorites SET group_id = $1 WHERE group_id = $2`, id, defID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM fav_groups WHERE id = $1`, defID); err != nil {
		return 0, err
	}
	return 1, nil
}

// ModifyGroup renames a group and replaces its description. The default flag is not
// modifiable here; it only moves through NewGroups arbitration.
func (r *Repository) ModifyGroup(ctx context.Context, userID int64, oldName string, group entity.FavGroup) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE fav_groups SET name = $1, description = $2
		WHERE user_id = $3 AND name = $4`, group.Name, group.Desc, userID, oldName)
	if isUniqueViolation(err) {
		return apperr.Parse("group name already exists")
	}
	if err != nil {
		return dbErr("modify group", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrGroupNotExists
	}
	return nil
}

// DeleteGroups removes the named groups; their favorites go with them.
func (r *Repository) DeleteGroups(ctx context.Context, userID int64, names []string) error {
	if len(names) == 0 {
		return apperr.Parse("group_names required")
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM fav_groups WHERE user_id = $1 AND name = ANY($2)`, userID, names)
	return dbErr("delete groups", err)
}

func (r *Repository) QueryGroups(ctx context.Context, userID int64, name string) ([]entity.FavGroup, error) {
	sql := `SELECT id, user_id, create_time, name, description, is_def FROM fav_groups WHERE user_id = $1`
	args := []any{userID}
	if name != "" {
		sql += ` AND name = $2`
		args = append(args, name)
	}
	return r.queryGroups(ctx, sql+` ORDER BY create_time`, args...)
}

func (r *Repository) queryGroups(ctx context.Context, sql string, args ...any) ([]entity.FavGroup, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, dbErr("query groups", err)
	}
	defer rows.Close()

	out := []entity.FavGroup{}
	for rows.Next() {
		var g entity.FavGroup
		if err := rows.Scan(&g.ID, &g.UserID, &g.CreateTime, &g.Name, &g.Desc, &g.IsDef); err != nil {
			return nil, dbErr("query groups", err)
		}
		out = append(out, g)
	}
	return out, dbErr("query groups", rows.Err())
}

// groupResolver caches group ids by name for one transaction. "" resolves to the default group.
type groupResolver struct {
	tx     pgx.Tx
	userID int64
	ids    map[string]int64
}

func newGroupResolver(tx pgx.Tx, userID int64) *groupResolver {
	return &groupResolver{tx: tx, userID: userID, ids: map[string]int64{}}
}

// id returns the group id, or ok=false when the group does not exist.
func (g *groupResolver) id(ctx context.Context, name string) (int64, bool, error) {
	if id, ok := g.ids[name]; ok {
		return id, id != 0, nil
	}
	var (
		id  int64
		err error
	)
	if name == "" {
		err = g.tx.QueryRow(ctx, `SELECT id FROM fav_groups WHERE user_id = $1 AND is_def`, g.userID).Scan(&id)
	} else {
		err = g.tx.QueryRow(ctx, `SELECT id FROM fav_groups WHERE user_id = $1 AND name = $2`, g.userID, name).Scan(&id)
	}
	if isNoRows(err) {
		g.ids[name] = 0
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	g.ids[name] = id
	return id, true, nil
}

func insertFavorite(ctx context.Context, tx pgx.Tx, userID int64, station string, groupID, createTime int64) (int64, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO favorites (user_id, stationuuid, group_id, create_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, stationuuid, group_id) DO NOTHING`,
		userID, station, groupID, createTime)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// NewFavorite inserts favorites in chunks. Entries naming an unknown group are skipped,
// as are duplicates of an existing (station, group) pair.
func (r *Repository) NewFavorite(ctx context.Context, userID int64, items []entity.StationGroup) (int, error) {
	var groups *groupResolver
	return r.inChunks(ctx, "new favorite", len(items), func(tx pgx.Tx, i int) (int64, error) {
		if i%r.chunkSize == 0 {
			groups = newGroupResolver(tx, userID)
		}
		it := items[i]
		groupID, ok, err := groups.id(ctx, it.GroupName)
		if err != nil || !ok {
			return 0, err
		}
		createTime := it.CreateTime
		if createTime == 0 {
			createTime = r.unix()
		}
		return insertFavorite(ctx, tx, userID, it.StationUUID, groupID, createTime)
	})
}

// DeleteFavorite removes favorites by station, by group, or by station within the groups.
func (r *Repository) DeleteFavorite(ctx context.Context, userID int64, stations, groupNames []string) error {
	var err error
	switch {
	case len(stations) == 0 && len(groupNames) == 0:
		return apperr.Parse("favorites or group_names required")
	case len(groupNames) == 0:
		_, err = r.pool.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND stationuuid = ANY($2)`, userID, stations)
	case len(stations) == 0:
		_, err = r.pool.Exec(ctx, `
			DELETE FROM favorites f USING fav_groups g
			WHERE f.group_id = g.id AND f.user_id = $1 AND g.name = ANY($2)`, userID, groupNames)
	default:
		_, err = r.pool.Exec(ctx, `
			DELETE FROM favorites f USING fav_groups g
			WHERE f.group_id = g.id AND f.user_id = $1 AND g.name = ANY($2) AND f.stationuuid = ANY($3)`,
			userID, groupNames, stations)
	}
	return dbErr("delete favorite", err)
}

// ModifyFavorite makes station a member of exactly the named groups. Unknown names are ignored.
func (r *Repository) ModifyFavorite(ctx context.Context, userID int64, station string, groupNames []string) error {
	return r.withTx(ctx, "modify favorite", func(tx pgx.Tx) error {
		groups := newGroupResolver(tx, userID)
		ids := make([]int64, 0, len(groupNames))
		for _, name := range groupNames {
			id, ok, err := groups.id(ctx, name)
			if err != nil {
				return err
			}
			if ok {
				ids = append(ids, id)
			}
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM favorites
			WHERE user_id = $1 AND stationuuid = $2 AND NOT (group_id = ANY($3))`,
			userID, station, ids); err != nil {
			return err
		}
		now := r.unix()
		for _, id := range ids {
			if _, err := insertFavorite(ctx, tx, userID, station, id, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) QueryFavorites(ctx context.Context, userID int64) ([]entity.StationGroup, error) {
	return r.queryFavorites(ctx, userID, sinceAll)
}

func (r *Repository) queryFavorites(ctx context.Context, userID, since int64) ([]entity.StationGroup, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT g.name, f.stationuuid, f.create_time
		FROM favorites f
		JOIN fav_groups g ON g.id = f.group_id
		WHERE f.user_id = $1 AND f.create_time > $2
		ORDER BY f.create_time`, userID, since)
	if err != nil {
		return nil, dbErr("query favorites", err)
	}
	defer rows.Close()

	out := []entity.StationGroup{}
	for rows.Next() {
		var sg entity.StationGroup
		if err := rows.Scan(&sg.GroupName, &sg.StationUUID, &sg.CreateTime); err != nil {
			return nil, dbErr("query favorites", err)
		}
		out = append(out, sg)
	}
	return out, dbErr("query favorites", rows.Err())
}

// QuerySync returns every preference record created after since. A since of 0 or
// less returns everything, including rows stamped 0.
func (r *Repository) QuerySync(ctx context.Context, userID int64, since int64) (*entity.SyncSet, error) {
	if since <= 0 {
		since = sinceAll
	}
	groups, err := r.queryGroups(ctx, `
		SELECT id, user_id, create_time, name, description, is_def
		FROM fav_groups
		WHERE user_id = $1 AND create_time > $2
		ORDER BY create_time`, userID, since)
	if err != nil {
		return nil, err
	}
	recently, err := r.queryRecently(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	favorites, err := r.queryFavorites(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	return &entity.SyncSet{Groups: groups, Recently: recently, Favorites: favorites}, nil
}
