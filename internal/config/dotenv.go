package config

import "github.com/joho/godotenv"

// LoadDotEnv reads a .env file into the process environment.
// Variables already set win over the file. A missing file is returned as an
// error the caller may ignore.
func LoadDotEnv(path string) error {
	return godotenv.Load(path)
}
