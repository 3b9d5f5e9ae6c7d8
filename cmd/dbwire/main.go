// Command dbwire runs sql commands against a database using sqlsession.
//
// The database is identified by a driver (postgres, pgx, mysql or sqlite)
// and a connection string, supplied as flags, as DBWIRE_ environment
// variables or in a config file.
package main

func main() {
	New().Execute()
}
