// Package survey loads the nutrition, physical activity and obesity survey
// dataset and answers the aggregate queries that surveyd jobs run.
package survey
