package catalog

import (
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/nexus/pkg/nexuserr"
)

// ConstraintKind enumerates the schema constraints the catalog can record.
type ConstraintKind string

const (
	ConstraintUniqueness ConstraintKind = "uniqueness"
	ConstraintExistence  ConstraintKind = "existence"
)

// Constraint is a durable schema-object describing a property constraint
// on a label.
type Constraint struct {
	Name  string         `json:"name"`
	Label string         `json:"label"`
	Key   string         `json:"key"`
	Kind  ConstraintKind `json:"kind"`
}

// PutConstraint registers a constraint by name, overwriting any existing
// constraint with the same name.
func (c *Catalog) PutConstraint(con Constraint) error {
	return putJSON(c.db, bucketConstraints, con.Name, con)
}

// GetConstraint looks up a constraint by name.
func (c *Catalog) GetConstraint(name string) (Constraint, error) {
	var con Constraint
	err := getJSON(c.db, bucketConstraints, name, &con)
	return con, err
}

// ListConstraints returns every registered constraint.
func (c *Catalog) ListConstraints() ([]Constraint, error) {
	var out []Constraint
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConstraints).ForEach(func(_, v []byte) error {
			var con Constraint
			if err := json.Unmarshal(v, &con); err != nil {
				return err
			}
			out = append(out, con)
			return nil
		})
	})
	return out, err
}

// DeleteConstraint removes a constraint by name.
func (c *Catalog) DeleteConstraint(name string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConstraints).Delete([]byte(name))
	})
}

// UDFRecord is the durable bookkeeping entry for a user-defined function
// registration. The catalog stores metadata only: the function body itself
// is Go code registered in-process each time the engine starts, the same
// way the procedure registry's built-ins are — there is no safe way to
// persist and later re-execute arbitrary code, so this record exists to
// let an embedder detect "a UDF named X used to be registered here" across
// restarts and re-register it.
type UDFRecord struct {
	Name       string   `json:"name"`
	ParamNames []string `json:"param_names"`
}

// PutUDF registers or overwrites a UDF record.
func (c *Catalog) PutUDF(rec UDFRecord) error {
	return putJSON(c.db, bucketUDFs, rec.Name, rec)
}

// GetUDF looks up a UDF record by name.
func (c *Catalog) GetUDF(name string) (UDFRecord, error) {
	var rec UDFRecord
	err := getJSON(c.db, bucketUDFs, name, &rec)
	return rec, err
}

// ListUDFs returns every registered UDF record.
func (c *Catalog) ListUDFs() ([]UDFRecord, error) {
	var out []UDFRecord
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUDFs).ForEach(func(_, v []byte) error {
			var rec UDFRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

// ProcedureRecord is the durable bookkeeping entry for a custom (non
// built-in) procedure registration, mirroring UDFRecord's rationale.
type ProcedureRecord struct {
	Name   string   `json:"name"`
	Yields []string `json:"yields"`
}

// PutProcedureRecord registers or overwrites a custom procedure record.
func (c *Catalog) PutProcedureRecord(rec ProcedureRecord) error {
	return putJSON(c.db, bucketProcedures, rec.Name, rec)
}

// ListProcedureRecords returns every registered custom procedure record.
func (c *Catalog) ListProcedureRecords() ([]ProcedureRecord, error) {
	var out []ProcedureRecord
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProcedures).ForEach(func(_, v []byte) error {
			var rec ProcedureRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

// DeleteProcedureRecord removes a custom procedure record by name.
func (c *Catalog) DeleteProcedureRecord(name string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProcedures).Delete([]byte(name))
	})
}

func putJSON(db *bolt.DB, bucket []byte, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return nexuserr.Wrap(nexuserr.KindInvalidInput, err, "marshal %s", bucket)
	}
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), body)
	})
}

func getJSON(db *bolt.DB, bucket []byte, key string, v any) error {
	var body []byte
	err := db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucket).Get([]byte(key)); b != nil {
			body = append([]byte(nil), b...)
		}
		return nil
	})
	if err != nil {
		return nexuserr.Wrap(nexuserr.KindStorageError, err, "read %s", bucket)
	}
	if body == nil {
		return nexuserr.New(nexuserr.KindNotFound, "%s not found in %s", key, bucket)
	}
	return json.Unmarshal(body, v)
}
