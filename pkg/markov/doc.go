/*
Package markov provides an in-memory Markov chain over whitespace-delimited
words, together with the tools to train it and to walk it.

A Chain maps a fixed-size window of preceding tokens (a Key) to every token
observed after that window. Followers are kept with their duplicates, so a
uniform pick from the follower list is a frequency-weighted pick. Chains only
grow: Train and TrainReader append observations and never rewrite them.

Walking a chain is done through a Sampler, which owns its randomness source
and its current window. A Sampler yields an unbounded, lazily computed stream
of tokens; when it reaches a window with no recorded followers it silently
restarts from a random sentence start.

Once training has finished, a Chain may be shared read-only by any number of
Samplers running concurrently. Training a chain while it is being sampled is
not supported.
*/
package markov
