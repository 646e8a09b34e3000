/*
Package corpus loads training text for Markov chains.

Extract turns plain text, Markdown or HTML into prose suitable for training.
Store keeps named corpora of such texts in a SQLite database and builds a
fresh markov.Chain from them on demand. Only the source texts are stored;
trained chains live in memory.
*/
package corpus
