/*
This library provides a simple, easy-to-understand implementation of a replicated in-memory
key-value store using Go. The store runs on a fixed set of peer nodes, each of which accepts
reads and writes for any key. Writes accepted by one node are pushed to all of its peers, and
conflicting writes are resolved with a deterministic last-writer-wins rule, so that all nodes
that have received the same set of writes hold the same data. Potential use cases include
caches, configuration fan-out, and other settings where availability matters more than strong
consistency.

Ordering between writes is established with Lamport logical clocks rather than wall-clock time.
Each node carries a single logical clock that advances on every local write and on every record
received from a peer. Each stored record carries the logical timestamp assigned by the node that
accepted the write together with that node's ID. A record replaces another exactly when its
timestamp is larger, or when the timestamps are equal and its writer ID is lexicographically
larger. This comparison totally orders all writes, which makes merging records commutative,
associative, and idempotent: peers may deliver updates late, duplicated, or in any order without
breaking convergence.

Replication is push-based and best-effort. A write is applied to the accepting node's store,
acknowledged to the client, and then pushed to each peer in the background. Pushes that fail are
logged and counted but not retried; a node that was unreachable catches up on a key the next time
that key is written. Received records are merged through the same last-writer-wins rule and are
never forwarded again, so replication is a single hop and cannot loop. Cluster membership is
fixed at startup through each node's configuration. There is no discovery, failure detection,
or consensus, and the store holds all data in memory: a restarted node starts empty until
subsequent writes repopulate it.

To run a node, create a server from a configuration and start it. The configuration names this
node, the address it serves the HTTP API on, and the addresses of its peers.

	config := kv.Config{
	    ID:            "node-1",
	    ListenAddress: "127.0.0.1:8001",
	    Peers:         []string{"127.0.0.1:8002", "127.0.0.1:8003"},
	}

	server, err := kv.NewServer(config)
	if err != nil {
	    panic(err)
	}

Note that options such as the push timeout and the logger may be specified when creating the
server. For example, the below code will create a server that gives up on a push to a peer after
one second. If no options are provided, the default options are used.

	server, err := kv.NewServer(config, kv.WithPushTimeout(time.Second))

Here is how to start and stop the server. Once Start returns, the node is serving its HTTP API
and pushing accepted writes to its peers. Stop abandons in-flight pushes and waits for their
goroutines to exit before returning.

	if err := server.Start(); err != nil {
	    panic(err)
	}
	defer server.Stop()

Clients interact with a node either through its HTTP API directly or through the Client type.

	client := kv.NewClient("127.0.0.1:8001")

	if _, err := client.Put(context.Background(), "name", "alice"); err != nil {
	    panic(err)
	}

	response, err := client.Get(context.Background(), "name")
	if err != nil {
	    panic(err)
	}

Be warned that a read served by one node may not yet reflect a write accepted by another: a value
written through node-1 becomes visible on node-2 only once the push arrives. Reads are always
served from the local store and never block on replication.
*/
package kv
