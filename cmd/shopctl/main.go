// shopctl is a small terminal client for the shop API. It drives the same
// cartsync reconciler the web clients use: every command mutates the local
// bbolt-backed state first and syncs with the server in the background, so
// the cart survives being offline or logged out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	evbus "github.com/asaskevich/EventBus"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mokosho/shop/internal/logging"
	"github.com/mokosho/shop/pkg/cartsync"
	"github.com/mokosho/shop/pkg/localstore"
	"github.com/mokosho/shop/pkg/shopapi"
)

const sessionKey = "session"

func main() {
	apiURL := flag.String("api", envDefault("SHOP_API_URL", "http://localhost:8080"), "shop API base URL")
	stateDir := flag.String("state", envDefault("SHOP_STATE_DIR", defaultStateDir()), "local state directory")
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	logger := logging.New(envDefault("LOG_LEVEL", "warn"))

	if err := os.MkdirAll(*stateDir, 0o755); err != nil {
		log.Fatalf("state dir: %v", err)
	}
	store, err := localstore.OpenBolt(filepath.Join(*stateDir, "state.db"), logger)
	if err != nil {
		log.Fatalf("open local state: %v", err)
	}
	defer store.Close()

	client := shopapi.NewClient(*apiURL)
	bus := evbus.New()

	cart := cartsync.NewCart(store, client, bus, logger)
	wishlist := cartsync.NewWishlist(store, client, bus, logger)

	ctx := context.Background()

	// Restore the previous session, if any, and let the reconcilers merge
	// local state with the server copy.
	if token, ok := store.Get(sessionKey); ok && len(token) > 0 {
		client.SetToken(string(token))
		cart.SetIdentity(ctx, tokenSubject(string(token)))
		wishlist.SetIdentity(ctx, tokenSubject(string(token)))
	}

	if err := run(ctx, flag.Args(), client, store, bus, cart, wishlist); err != nil {
		log.Fatal(err)
	}

	cart.Wait()
	wishlist.Wait()
}

func run(ctx context.Context, args []string, client *shopapi.Client, store *localstore.Bolt, bus evbus.Bus, cart *cartsync.Cart, wishlist *cartsync.Wishlist) error {
	switch args[0] {
	case "login":
		if len(args) != 3 {
			return fmt.Errorf("usage: shopctl login <username> <password>")
		}
		token, err := client.Login(ctx, args[1], args[2])
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		store.Set(sessionKey, []byte(token))
		cart.SetIdentity(ctx, tokenSubject(token))
		wishlist.SetIdentity(ctx, tokenSubject(token))
		fmt.Println("logged in")
		return nil

	case "logout":
		if err := client.Logout(ctx); err != nil {
			log.Printf("logout: %v", err)
		}
		store.Delete(sessionKey)
		cart.SetIdentity(ctx, "")
		wishlist.SetIdentity(ctx, "")
		fmt.Println("logged out")
		return nil

	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: shopctl add <product-id> [quantity]")
		}
		qty := 1
		if len(args) > 2 {
			n, err := parseQuantity(args[2])
			if err != nil {
				return err
			}
			qty = n
		}
		return cart.Add(ctx, cartsync.Line{ID: args[1]}, qty)

	case "rm":
		if len(args) != 2 {
			return fmt.Errorf("usage: shopctl rm <product-id>")
		}
		cart.Remove(ctx, args[1])
		return nil

	case "qty":
		if len(args) != 3 {
			return fmt.Errorf("usage: shopctl qty <product-id> <quantity>")
		}
		n, err := parseQuantity(args[2])
		if err != nil {
			return err
		}
		cart.UpdateQuantity(ctx, args[1], n)
		return nil

	case "clear":
		cart.Clear(ctx)
		return nil

	case "list":
		printCart(cart)
		return nil

	case "watch":
		// Re-render on every reconciler notification, e.g. when the
		// background identity sync replaces the collection.
		if err := bus.Subscribe(cartsync.TopicCartChanged, func() { printCart(cart) }); err != nil {
			return err
		}
		if err := bus.Subscribe(cartsync.TopicWishlistChanged, func() { printWishlist(wishlist) }); err != nil {
			return err
		}
		printCart(cart)
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt)
		<-stop
		return nil

	case "wish":
		if len(args) < 2 {
			return fmt.Errorf("usage: shopctl wish add|rm|list ...")
		}
		switch args[1] {
		case "add":
			if len(args) != 3 {
				return fmt.Errorf("usage: shopctl wish add <product-id>")
			}
			return wishlist.Add(ctx, cartsync.Line{ID: args[2]})
		case "rm":
			if len(args) != 3 {
				return fmt.Errorf("usage: shopctl wish rm <product-id>")
			}
			wishlist.Remove(ctx, args[2])
			return nil
		case "list":
			printWishlist(wishlist)
			return nil
		}
		return fmt.Errorf("unknown wish command %q", args[1])
	}

	usage()
	return fmt.Errorf("unknown command %q", args[0])
}

func printCart(cart *cartsync.Cart) {
	for _, l := range cart.Items() {
		fmt.Printf("%s  x%d  %.2f\n", l.ID, l.Quantity, l.EffectiveUnitPrice())
	}
	fmt.Printf("items: %d  total: %.2f\n", cart.TotalItems(), cart.TotalPrice())
}

func printWishlist(wishlist *cartsync.Wishlist) {
	for _, l := range wishlist.Items() {
		fmt.Printf("%s  %.2f\n", l.ID, l.EffectiveUnitPrice())
	}
}

func parseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad quantity %q", s)
	}
	return n, nil
}

// tokenSubject extracts the user id from the stored access token so the
// reconcilers key identity transitions on the user, not the token string. The
// server verifies the signature; here the claim is only an identity label.
func tokenSubject(token string) string {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.Subject == "" {
		return token
	}
	return claims.Subject
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: shopctl [flags] <command>

commands:
  login <username> <password>
  logout
  add <product-id> [quantity]
  rm <product-id>
  qty <product-id> <quantity>
  clear
  list
  watch
  wish add|rm|list [product-id]`)
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mokosho"
	}
	return filepath.Join(home, ".mokosho")
}
