package dao

import (
	"fmt"
	"reflect"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database is the in-memory sqlite database used by the dao unit tests. The
// store under test is the same embedded sqlite3 dialect the bot runs on.
type Database struct {
	Name string
	DB   *gorm.DB
}

// RunDB opens a fresh in-memory database for one test suite.
func RunDB(dbName string) (*Database, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	conn, err := db.DB()
	if err != nil {
		return nil, err
	}
	// keep the shared in-memory database alive for the suite's lifetime
	conn.SetMaxIdleConns(1)

	return &Database{
		Name: dbName,
		DB:   db,
	}, nil
}

// StopDB closes the database, releasing the in-memory store.
func (d *Database) StopDB() error {
	conn, err := d.DB.DB()
	if err != nil {
		return err
	}
	return conn.Close()
}

// ClearDB drops the tables in the database.
func (d *Database) ClearDB() error {
	tables, err := d.DB.Migrator().GetTables()
	if err != nil {
		return err
	}
	for _, table := range tables {
		if err := d.DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS `%s`;", table)).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetDBName get a db name by using the Suite struct in each test
func GetDBName(s interface{}) string {
	t := reflect.TypeOf(s)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return strings.ReplaceAll(t.Name(), "/", "_")
}
