// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fmcsa-watch/chameleon-backend/internal/detect"
	"github.com/fmcsa-watch/chameleon-backend/internal/model"
)

const writeBatchSize = 500

// WriteDetectionResult persists one detect run's output under a single
// transaction: delete this run's prior links and clusters, insert the new
// links (meaningful-cutoff applied here, not during clustering), insert
// clusters and their members, then replace the risk-score table wholesale.
func (g *Gateway) WriteDetectionResult(runID string, result detect.Result) error {
	tx, err := g.db.Handle.Beginx()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", model.ErrStore, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(g.rebind("DELETE FROM carrier_link WHERE run_id = ?"), runID); err != nil {
		return fmt.Errorf("%w: delete carrier_link: %v", model.ErrStore, err)
	}

	if _, err := tx.Exec(g.rebind(`DELETE FROM cluster_member WHERE cluster_id IN (
		SELECT id FROM carrier_cluster WHERE run_id = ?)`), runID); err != nil {
		return fmt.Errorf("%w: delete cluster_member: %v", model.ErrStore, err)
	}
	if _, err := tx.Exec(g.rebind("DELETE FROM carrier_cluster WHERE run_id = ?"), runID); err != nil {
		return fmt.Errorf("%w: delete carrier_cluster: %v", model.ErrStore, err)
	}

	meaningful := detect.MeaningfulLinks(result.Links)
	if err := g.insertLinks(tx, runID, meaningful); err != nil {
		return err
	}

	if err := g.insertClusters(tx, runID, result.Clusters); err != nil {
		return err
	}

	if err := g.replaceRiskScores(tx, result.RiskScores); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", model.ErrStore, err)
	}
	return nil
}

// rebind rewrites a "?"-placeholder query string to the connected backend's
// placeholder style, mirroring squirrel's own PlaceholderFormat so hand
// written statements (outside the query builder) stay portable too. The
// bind type is chosen from the backend, since sqlx does not recognize the
// hooks-wrapped driver names registered in connection.go.
func (g *Gateway) rebind(query string) string {
	if g.db.Backend == "postgres" {
		return sqlx.Rebind(sqlx.DOLLAR, query)
	}
	return sqlx.Rebind(sqlx.QUESTION, query)
}

func (g *Gateway) insertLinks(tx *sqlx.Tx, runID string, links []model.CarrierLink) error {
	for start := 0; start < len(links); start += writeBatchSize {
		end := start + writeBatchSize
		if end > len(links) {
			end = len(links)
		}
		insert := g.builder.Insert("carrier_link").
			Columns("dot_number_a", "dot_number_b", "run_id", "score", "reasons_json")
		for _, l := range links[start:end] {
			reasonsJSON, err := json.Marshal(l.Reasons)
			if err != nil {
				return fmt.Errorf("%w: marshal reasons: %v", model.ErrStore, err)
			}
			insert = insert.Values(l.DOTA, l.DOTB, runID, l.Score, string(reasonsJSON))
		}
		if len(links[start:end]) == 0 {
			continue
		}
		if _, err := insert.RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("%w: insert carrier_link batch: %v", model.ErrStore, err)
		}
	}
	return nil
}

func (g *Gateway) insertClusters(tx *sqlx.Tx, runID string, clusters []model.CarrierCluster) error {
	for _, cl := range clusters {
		insert := g.builder.Insert("carrier_cluster").
			Columns("cluster_id", "run_id", "size", "edge_count", "avg_link_score", "max_link_score").
			Values(cl.ClusterID, runID, cl.Size, cl.EdgeCount, cl.AvgLinkScore, cl.MaxLinkScore)

		var internalID int64
		if g.db.Backend == "postgres" {
			query, args, err := insert.Suffix("RETURNING id").ToSql()
			if err != nil {
				return fmt.Errorf("%w: build carrier_cluster insert: %v", model.ErrStore, err)
			}
			if err := tx.QueryRow(query, args...).Scan(&internalID); err != nil {
				return fmt.Errorf("%w: insert carrier_cluster: %v", model.ErrStore, err)
			}
		} else {
			res, err := insert.RunWith(tx).Exec()
			if err != nil {
				return fmt.Errorf("%w: insert carrier_cluster: %v", model.ErrStore, err)
			}
			internalID, err = res.LastInsertId()
			if err != nil {
				return fmt.Errorf("%w: carrier_cluster last insert id: %v", model.ErrStore, err)
			}
		}

		if err := g.insertClusterMembers(tx, internalID, cl.Members); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gateway) insertClusterMembers(tx *sqlx.Tx, clusterInternalID int64, members []int64) error {
	for start := 0; start < len(members); start += writeBatchSize {
		end := start + writeBatchSize
		if end > len(members) {
			end = len(members)
		}
		insert := g.builder.Insert("cluster_member").Columns("cluster_id", "dot_number")
		for _, m := range members[start:end] {
			insert = insert.Values(clusterInternalID, m)
		}
		if _, err := insert.RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("%w: insert cluster_member batch: %v", model.ErrStore, err)
		}
	}
	return nil
}

func (g *Gateway) replaceRiskScores(tx *sqlx.Tx, scores []model.CarrierRiskScore) error {
	if _, err := tx.Exec("DELETE FROM carrier_risk_score"); err != nil {
		return fmt.Errorf("%w: delete carrier_risk_score: %v", model.ErrStore, err)
	}
	now := time.Now().UTC()
	for start := 0; start < len(scores); start += writeBatchSize {
		end := start + writeBatchSize
		if end > len(scores) {
			end = len(scores)
		}
		insert := g.builder.Insert("carrier_risk_score").
			Columns("dot_number", "chameleon_score", "safety_score", "composite_score",
				"signals_json", "cluster_size", "updated_at")
		for _, s := range scores[start:end] {
			signalsJSON, err := json.Marshal(s.Signals)
			if err != nil {
				return fmt.Errorf("%w: marshal signals: %v", model.ErrStore, err)
			}
			updatedAt := s.UpdatedAt
			if updatedAt.IsZero() {
				updatedAt = now
			}
			insert = insert.Values(s.DOT, s.ChameleonScore, s.SafetyScore, s.CompositeScore,
				string(signalsJSON), s.ClusterSize, updatedAt)
		}
		if len(scores[start:end]) == 0 {
			continue
		}
		if _, err := insert.RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("%w: insert carrier_risk_score batch: %v", model.ErrStore, err)
		}
	}
	return nil
}
