package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	middleware "github.com/mokosho/shop/internal/middleware/auth"
	"github.com/mokosho/shop/internal/util"
)

type Deps struct {
	AuthHandler     *AuthHTTP
	CartHandler     *CartHTTP
	WishlistHandler *WishlistHTTP
	ProductHandler  *ProductHTTP
	JWTSecret       []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	authMW := middleware.New(d.JWTSecret)

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout)

	cart := api.Group("/cart")
	cart.Use(authMW.RequireAuth)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PATCH("/:id", d.CartHandler.PatchCartItem)
	cart.DELETE("/:id", d.CartHandler.DeleteCartItem)
	cart.DELETE("", d.CartHandler.ClearCart)

	wishlist := api.Group("/wishlist")
	wishlist.Use(authMW.RequireAuth)
	wishlist.GET("", d.WishlistHandler.GetWishlist)
	wishlist.POST("", d.WishlistHandler.AddToWishlist)
	wishlist.DELETE("/:id", d.WishlistHandler.DeleteWishlistItem)

	api.GET("/products", d.ProductHandler.ListProducts)
	api.GET("/products/:id", d.ProductHandler.GetProduct)
	api.GET("/products/slug/:slug", d.ProductHandler.GetProductBySlug)
	api.GET("/search", d.ProductHandler.SearchProducts)

	admin := api.Group("/products")
	admin.Use(authMW.RequireAdmin)
	admin.POST("", d.ProductHandler.CreateProduct)
	admin.PATCH("/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/:id", d.ProductHandler.DeleteProduct)
}

func pagination(c echo.Context) (page, size int) {
	page = util.ParseIntDefault(c.QueryParam("page"), 1)
	size = util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	return util.Normalize(page, size)
}
